package formatter

import (
	"strings"
	"unicode"
)

// RuneWidth returns the display width of a rune.
// CJK characters are width 2, everything else width 1.
func RuneWidth(r rune) int {
	if r < 128 {
		return 1
	}

	if unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) {
		return 2
	}
	return 1
}

// StringWidth returns the display width of a string
func StringWidth(s string) int {
	width := 0
	for _, r := range s {
		width += RuneWidth(r)
	}
	return width
}

// PadString right-pads s with spaces to the given display width
func PadString(s string, width int) string {
	currentWidth := StringWidth(s)
	if currentWidth >= width {
		return s
	}
	return s + strings.Repeat(" ", width-currentWidth)
}

// TruncateString shortens s to at most width display columns, ending with "..."
// when anything was cut. Prefix names and status reasons can be long.
func TruncateString(s string, width int) string {
	if StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return strings.Repeat(".", max(width, 0))
	}

	var b strings.Builder
	used := 0
	for _, r := range s {
		w := RuneWidth(r)
		if used+w > width-3 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	b.WriteString("...")
	return b.String()
}
