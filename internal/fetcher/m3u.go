package fetcher

import (
	"bufio"
	"io"
	"strings"

	"github.com/voyagen/lulutv/internal/models"
)

const maxLineSize = 1024 * 1024

type parseState int

const (
	expectMetadata parseState = iota
	expectURL
)

// m3uParser is the line-driven state machine shared by Parse and ParseReader.
type m3uParser struct {
	state   parseState
	attrs   map[string]string
	display string
	headers *models.StreamHeaders
	out     []models.ChannelRecord
}

// Parse turns manifest text into channel records in manifest order.
// Entries without a URL line are dropped.
func Parse(text string) []models.ChannelRecord {
	p := &m3uParser{}
	for text != "" {
		line := text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, text = text[:i], text[i+1:]
		} else {
			text = ""
		}
		p.feed(line)
	}
	return p.out
}

// ParseReader is Parse over a stream. Lines longer than 1 MiB fail the scan.
func ParseReader(r io.Reader) ([]models.ChannelRecord, error) {
	p := &m3uParser{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		p.feed(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.out, nil
}

func (p *m3uParser) feed(raw string) {
	line := strings.TrimSpace(raw)
	switch {
	case line == "":
		return
	case hasPrefixFold(line, "#EXTINF"):
		// A pending entry with no URL is replaced.
		p.attrs, p.display = parseExtinf(line)
		p.headers = nil
		p.state = expectURL
	case hasPrefixFold(line, "#EXTVLCOPT:"):
		if p.state == expectURL {
			p.addOption(line[len("#EXTVLCOPT:"):])
		}
	case line[0] == '#':
		return
	default:
		if p.state != expectURL {
			return
		}
		p.out = append(p.out, p.record(line))
		p.attrs, p.display, p.headers = nil, "", nil
		p.state = expectMetadata
	}
}

func (p *m3uParser) addOption(opt string) {
	k, v, ok := strings.Cut(opt, "=")
	if !ok {
		return
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if p.headers == nil {
		p.headers = &models.StreamHeaders{}
	}
	switch strings.ToLower(strings.TrimSpace(k)) {
	case "http-user-agent":
		p.headers.UserAgent = v
	case "http-referrer", "http-referer":
		p.headers.Referrer = v
	case "http-origin":
		p.headers.HTTPOrigin = v
	}
}

func (p *m3uParser) record(url string) models.ChannelRecord {
	a := p.attrs
	rec := models.ChannelRecord{
		ID:       first(a["tvg-id"], a["id"]),
		Name:     first(a["tvg-name"], p.display, a["tvg-id"], models.UnknownName),
		TvgID:    a["tvg-id"],
		TvgName:  a["tvg-name"],
		Logo:     first(a["tvg-logo"], a["logo"]),
		Group:    first(a["group-title"], a["group"]),
		Language: first(a["tvg-language"], a["language"]),
		Country:  first(a["tvg-country"], a["country"]),
		URL:      url,
	}
	if !p.headers.Empty() {
		rec.Headers = p.headers
	}
	return rec
}

// parseExtinf splits `#EXTINF:<duration> k="v" ...,Display Name` into its
// attributes (lowercased keys, last wins) and trailing display name.
func parseExtinf(line string) (map[string]string, string) {
	body := line[len("#EXTINF"):]
	body = strings.TrimPrefix(body, ":")

	head, display := body, ""
	inQuote := false
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				head, display = body[:i], strings.TrimSpace(body[i+1:])
				i = len(body)
			}
		}
	}
	return parseAttrs(head), display
}

func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for i := 0; i < len(s); {
		if !isKeyChar(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isKeyChar(s[j]) {
			j++
		}
		if j+1 < len(s) && s[j] == '=' && s[j+1] == '"' {
			end := strings.IndexByte(s[j+2:], '"')
			if end < 0 {
				break
			}
			attrs[strings.ToLower(s[i:j])] = s[j+2 : j+2+end]
			i = j + 2 + end + 1
			continue
		}
		i = j
	}
	return attrs
}

func isKeyChar(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
