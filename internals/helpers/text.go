package helper

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName: NFC + collapse whitespace, dipakai untuk nama siswa di export/sort.
func NormalizeName(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// SortKey: lower-case, tanpa diakritik (é → e) supaya urutan nama stabil.
func SortKey(s string) string {
	return strings.ToLower(StripDiacritics(s))
}

// StripDiacritics: "Zoë Ávila" → "Zoe Avila", whitespace dinormalkan.
func StripDiacritics(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(NormalizeName(s)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}
