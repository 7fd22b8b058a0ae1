package punch

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Tokens splits a raw name into words. Underscores and hyphens count as
// separators (terminals often store "SAID_BOUZIT"), then any run of
// whitespace splits. Empty tokens are dropped.
func Tokens(name string) []string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.Fields(cleaned)
}

// NameKey builds the canonical equality key for a name: NFC normalization,
// Unicode case folding, tokens joined by a single space. Two names refer to
// the same person for linking purposes iff their NameKeys are equal. Raw
// strings are never compared directly.
func NameKey(name string) string {
	folded := cases.Fold().String(norm.NFC.String(name))
	return strings.Join(Tokens(folded), " ")
}

// CleanFullName is the display form: tokens rejoined with single spaces and
// title-cased. Language-neutral casing; device names carry no locale.
func CleanFullName(name string) string {
	joined := strings.Join(Tokens(name), " ")
	return cases.Title(language.Und).String(joined)
}

// IsTwoWordName reports whether a name has at least two tokens. Automatic
// linking and creation both require it on every side; one-word names are
// too ambiguous to act on without a human.
func IsTwoWordName(name string) bool {
	return len(Tokens(name)) >= 2
}

// IsAdminish reports whether a name is a built-in device account rather
// than a person. Such accounts never participate in linking and do not
// count against bootstrap detection.
func IsAdminish(name string) bool {
	switch NameKey(name) {
	case "admin", "administrator":
		return true
	}
	return false
}

// NormalizeBioID canonicalizes a device user ID: trim, drop inner spaces,
// strip leading zeros. "007", " 0 0 7 " and "7" all normalize to "7".
// An all-zero ID floors at "0" rather than the empty string.
func NormalizeBioID(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if s == "" {
		return ""
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// ValidBioID reports whether id is acceptable as a stored employee device
// ID: one to ten ASCII digits. Terminals reject anything longer and the
// next-free-ID allocator depends on numeric IDs.
func ValidBioID(id string) bool {
	if len(id) == 0 || len(id) > 10 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// SanitizeDeviceName converts a name to the form terminals accept on push:
// ASCII only (non-ASCII runes dropped), collapsed spaces, at most 24 bytes,
// never cut mid-word unless the first word alone exceeds the limit.
func SanitizeDeviceName(name string) string {
	var b strings.Builder
	for _, r := range norm.NFC.String(name) {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	words := strings.Fields(b.String())
	out := ""
	for _, w := range words {
		candidate := w
		if out != "" {
			candidate = out + " " + w
		}
		if len(candidate) > 24 {
			break
		}
		out = candidate
	}
	if out == "" && len(words) > 0 {
		w := words[0]
		if len(w) > 24 {
			w = w[:24]
		}
		out = w
	}
	return out
}
