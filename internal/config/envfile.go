package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env.local and .env from the working directory and the
// executable's directory. A file only fills variables that are unset or empty,
// so the environment and earlier files win.
func loadEnvFiles() {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Dir(exe); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		for _, name := range []string{".env.local", ".env"} {
			applyEnvFile(filepath.Join(dir, name))
		}
	}
}

func applyEnvFile(path string) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return
	}
	for key, value := range vars {
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}
