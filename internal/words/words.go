// Package words provides a script-aware word count used for transcript
// accounting. CJK scripts have no whitespace word boundaries, so characters
// in those ranges are counted individually; the remainder of the text is
// counted as whitespace-delimited tokens.
package words

import "strings"

// cjk ranges: CJK Unified Ideographs, Extension A, Hiragana, Katakana.
func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case r >= 0x3400 && r <= 0x4DBF:
		return true
	case r >= 0x3040 && r <= 0x309F:
		return true
	case r >= 0x30A0 && r <= 0x30FF:
		return true
	}
	return false
}

// Count returns the number of CJK characters plus the number of
// whitespace-delimited tokens after CJK characters are removed, so mixed
// text like "hello 世界 world" counts as 4.
func Count(text string) int {
	cjk := 0
	var rest strings.Builder
	rest.Grow(len(text))

	for _, r := range text {
		if isCJK(r) {
			cjk++
			// Replace with a space so adjacent latin runs split correctly.
			rest.WriteByte(' ')
			continue
		}
		rest.WriteRune(r)
	}

	return cjk + len(strings.Fields(rest.String()))
}
