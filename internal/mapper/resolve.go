package mapper

import (
	"strings"
	"unicode"
)

// Normalize lowercases a header and strips whitespace, hyphens, underscores and parentheses
func Normalize(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '-', '_', '(', ')':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ResolveHeader picks the header that best answers one of the candidate names.
// Exact normalized matches win in candidate order; when two headers normalize
// alike the later column wins. Only when no exact match exists does a substring
// match in either direction get a chance, again in candidate order.
func ResolveHeader(headers []string, candidates []string) (string, bool) {
	normalized := make(map[string]string, len(headers))
	for _, h := range headers {
		normalized[Normalize(h)] = h
	}
	for _, c := range candidates {
		if h, ok := normalized[Normalize(c)]; ok {
			return h, true
		}
	}

	for _, c := range candidates {
		nc := Normalize(c)
		if nc == "" {
			continue
		}
		for _, h := range headers {
			nh := Normalize(h)
			if nh == "" {
				continue
			}
			if strings.Contains(nh, nc) || strings.Contains(nc, nh) {
				return h, true
			}
		}
	}
	return "", false
}

// ResolveField returns the trimmed value of the column matching the candidates,
// or the empty string when no column matches.
func ResolveField(row Row, candidates []string) string {
	h, ok := ResolveHeader(row.Headers(), candidates)
	if !ok {
		return ""
	}
	return strings.TrimSpace(row.Get(h))
}
