package engine

import "strings"

// Client apps decorate button labels with directional and zero-width marks
// depending on platform and app version. Matching happens on the stripped,
// whitespace-collapsed form so stale keyboards keep working.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if invisibleRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Canonical folds case on top of Normalize; it is the comparison form used
// for duplicate detection.
func Canonical(text string) string {
	return strings.ToLower(Normalize(text))
}

func invisibleRune(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u200E', '\u200F', // zero-width + LRM/RLM
		'\u202A', '\u202B', '\u202C', '\u202D', '\u202E', // directional embedding
		'\u2066', '\u2067', '\u2068', '\u2069', // directional isolates
		'\u061C', '\u2060', '\uFEFF': // ALM, word joiner, BOM
		return true
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// matchButton accepts the exact label plus any known legacy variant, by
// substring, so keyboards cached by old clients still navigate.
func matchButton(normalized, button string) bool {
	if normalized == button {
		return true
	}
	for _, variant := range buttonVariants[button] {
		if strings.Contains(normalized, variant) {
			return true
		}
	}
	return false
}
