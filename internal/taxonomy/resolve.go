// Package taxonomy maps free-text country and language names to ISO codes.
package taxonomy

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Resolver resolves English names (or codes) to lowercase ISO codes.
// The name tables are built on first use.
type Resolver struct {
	once      sync.Once
	countries map[string]string // folded English name -> ISO 3166-1 alpha-2
	languages map[string]string // folded English name -> ISO 639-3
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Country returns the lowercase alpha-2 code for a country name or code.
// A two-letter alphabetic input is returned lowercased as is.
func (r *Resolver) Country(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if len(name) == 2 && isAlpha(name) {
		return strings.ToLower(name), true
	}
	r.once.Do(r.build)
	code, ok := r.countries[fold(name)]
	return code, ok
}

// Language returns the lowercase ISO 639-3 code for a language name or code.
// A three-letter alphabetic input is returned lowercased as is; a two-letter
// one is mapped to its three-letter form.
func (r *Resolver) Language(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if isAlpha(name) {
		switch len(name) {
		case 3:
			return strings.ToLower(name), true
		case 2:
			if b, err := language.ParseBase(name); err == nil {
				return b.ISO3(), true
			}
			return "", false
		}
	}
	r.once.Do(r.build)
	code, ok := r.languages[fold(name)]
	return code, ok
}

func (r *Resolver) build() {
	r.countries = make(map[string]string)
	r.languages = make(map[string]string)
	regions := display.English.Regions()
	langs := display.English.Languages()

	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			code := string([]rune{a, b})

			if reg, err := language.ParseRegion(code); err == nil && reg.IsCountry() && reg.String() == code && reg.Canonicalize() == reg {
				if n := regions.Name(reg); n != "" {
					if _, dup := r.countries[fold(n)]; !dup {
						r.countries[fold(n)] = strings.ToLower(code)
					}
				}
			}
			if base, err := language.ParseBase(strings.ToLower(code)); err == nil && base.String() == strings.ToLower(code) {
				if n := langs.Name(base); n != "" {
					if _, dup := r.languages[fold(n)]; !dup {
						r.languages[fold(n)] = base.ISO3()
					}
				}
			}
		}
	}
}

// fold lowercases s and strips diacritics so "Côte d'Ivoire" matches "cote d'ivoire".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func isAlpha(s string) bool {
	for _, c := range s {
		if !unicode.IsLetter(c) || c > unicode.MaxASCII {
			return false
		}
	}
	return true
}
