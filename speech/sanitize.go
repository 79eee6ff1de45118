package speech

import "strings"

// Pictographic and symbol ranges the voice backend cannot pronounce.
var unspeakableRanges = []struct{ lo, hi rune }{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols and pictographs
	{0x1F680, 0x1F6FF}, // transport and map symbols
	{0x1F1E0, 0x1F1FF}, // flags
	{0x2702, 0x27B0},   // dingbats
	{0x1F900, 0x1F9FF}, // supplemental symbols
	{0x2600, 0x26FF},   // miscellaneous symbols
}

// Markdown markers stripped so the voice doesn't read formatting noise.
const markdownMarkers = "*_`~"

// Speakable strips pictographic symbols and markdown markers and collapses
// all whitespace runs to single spaces, producing text safe to hand to the
// voice backend.
func Speakable(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isUnspeakable(r) || strings.ContainsRune(markdownMarkers, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isUnspeakable(r rune) bool {
	for _, rng := range unspeakableRanges {
		if r >= rng.lo && r <= rng.hi {
			return true
		}
	}
	return false
}
