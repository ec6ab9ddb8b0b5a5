package archive

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
)

// RepairName recovers Korean ZIP entry names that were stored without
// the UTF-8 flag. archive/zip keeps such names as the raw stored bytes,
// so a legacy Korean archive yields invalid-UTF-8 strings holding EUC-KR
// bytes; those are decoded directly. Names that went through a CP437
// decode elsewhere (other archivers, Python tooling) arrive as valid
// UTF-8 mojibake instead, so for those the CP437 round-trip recovers
// the raw bytes first. Names that already contain Hangul pass through,
// and any repair failure falls back to the raw name.
func RepairName(name string) string {
	if containsHangul(name) {
		return name
	}

	raw := name
	if utf8.ValidString(name) {
		enc, err := charmap.CodePage437.NewEncoder().String(name)
		if err != nil {
			return name
		}
		raw = enc
		if utf8.ValidString(raw) && containsHangul(raw) {
			return raw
		}
	}

	decoded, err := korean.EUCKR.NewDecoder().String(raw)
	if err != nil {
		return name
	}
	if containsHangul(decoded) {
		return decoded
	}
	return name
}

func containsHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

// NormalizeName converts backslash separators (written by some Windows
// archivers) to forward slashes and trims a leading "./".
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimPrefix(name, "./")
	return name
}
