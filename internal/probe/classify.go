// Package probe checks whether a stream URL is reachable and looks playable by
// an HLS player, using response headers and a small body sample.
package probe

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var reCodecs = regexp.MustCompile(`CODECS="([^"]+)"`)

// Classify reports whether a response looks HLS-compatible and why.
// sample is the first bytes of the body, or nil if none was read.
func Classify(h http.Header, sample []byte) (bool, string) {
	ct := strings.ToLower(h.Get("Content-Type"))
	if strings.Contains(ct, "mpegurl") || strings.HasSuffix(ct, "m3u8") {
		return true, fmt.Sprintf("content-type indicates mpegurl (%s)", ct)
	}

	if len(sample) > 0 {
		s := string(sample)
		if strings.Contains(s, "#EXTM3U") &&
			(strings.Contains(s, "#EXTINF") || strings.Contains(s, "#EXT-X-STREAM-INF")) {
			return classifyPlaylist(s)
		}
		head := sample
		if len(head) > 64 {
			head = head[:64]
		}
		if bytes.HasPrefix(sample, []byte{0, 0, 0}) && bytes.Contains(head, []byte("ftyp")) {
			return false, "sample indicates fMP4/MP4 fragment (no playlist)"
		}
	}

	if strings.Contains(ct, "video") {
		return false, fmt.Sprintf("content-type video but not m3u8 (%s)", ct)
	}
	return false, ""
}

func classifyPlaylist(s string) (bool, string) {
	var codecs []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#EXT-X-STREAM-INF") {
			continue
		}
		m := reCodecs.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, c := range strings.Split(m[1], ",") {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				codecs = append(codecs, c)
			}
		}
	}
	if len(codecs) == 0 {
		return true, "playlist markers present"
	}
	list := strings.Join(codecs, ",")
	for _, c := range codecs {
		if knownCodec(c) {
			return true, "playlist with CODECS " + list
		}
	}
	return false, "playlist with unrecognized CODECS " + list
}

func knownCodec(c string) bool {
	return strings.Contains(c, "avc") || strings.Contains(c, "h264") ||
		strings.Contains(c, "mp4a") || strings.Contains(c, "aac")
}
