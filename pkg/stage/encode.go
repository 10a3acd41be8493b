package stage

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// percentEncodeUnreserved percent-encodes every byte of s except the
// URI-unreserved set (letters, digits, '-', '_', '.', '~'), matching
// the encode-everything behavior the resolver uses for a mod's
// filename. Distinct from encodeSpaces below: a source URL is already
// escaped by its origin CDN, and re-running full percent-encoding over
// it would double-escape existing "%xx" sequences.
func percentEncodeUnreserved(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	default:
		return false
	}
}

// encodeSpaces replaces only literal space characters with "%20",
// leaving every other character — including existing percent-escapes —
// untouched.
func encodeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "%20")
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// lastPathSegmentBeforeQuery derives a filename from a URL the way the
// URL mod variant does when no explicit filename is given: split on the
// final "/", then drop anything from the first "?" onward.
func lastPathSegmentBeforeQuery(rawURL string) string {
	parts := strings.Split(rawURL, "/")
	last := parts[len(parts)-1]
	if i := strings.Index(last, "?"); i >= 0 {
		last = last[:i]
	}
	return last
}
