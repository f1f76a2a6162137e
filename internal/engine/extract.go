package engine

import (
	"regexp"
	"strings"
	"unicode"
)

// Labeled-field patterns. The id label accepts "ID:", "ID Pelanggan:" and
// "=" separators; the description label covers the common complaint words.
var (
	idLabelRe   = regexp.MustCompile(`(?im)\bid(?:\s+pelanggan)?\s*[:=]\s*([A-Za-z0-9-]{3,})`)
	descLabelRe = regexp.MustCompile(`(?im)\b(?:kendala|gangguan|keluhan|deskripsi|masalah)\s*[:=]\s*(.+)$`)
)

// looksLikeReference reports whether a token is identifier-shaped: letters
// and digits mixed, length at least the given minimum.
func looksLikeReference(token string, minLen int) bool {
	if len(token) < minLen {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range token {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '-':
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

// extractForm pulls a customer reference id and a free-text description out
// of a form message. First pass matches labeled fields; the fallback scans
// for an identifier-shaped token and treats the remainder as description.
func extractForm(message string) (refID, description string) {
	if m := idLabelRe.FindStringSubmatch(message); m != nil {
		if looksLikeReference(m[1], 3) {
			refID = m[1]
		}
	}
	if m := descLabelRe.FindStringSubmatch(message); m != nil {
		description = strings.TrimSpace(m[1])
	}
	if refID != "" && description != "" {
		return refID, description
	}

	// Fallback: unlabeled message, look for an id-shaped token.
	if refID == "" {
		for _, tok := range strings.FieldsFunc(message, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
		}) {
			if looksLikeReference(tok, 4) {
				refID = tok
				break
			}
		}
	}

	if description == "" && refID != "" {
		rest := strings.TrimSpace(removeToken(message, refID))
		rest = strings.TrimSpace(strings.Trim(rest, ":=,.-"))
		if len(rest) >= 8 {
			description = rest
		}
	}
	return refID, description
}

func removeToken(s, token string) string {
	idx := strings.Index(s, token)
	if idx < 0 {
		return s
	}
	return s[:idx] + s[idx+len(token):]
}
