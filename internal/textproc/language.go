package textproc

import (
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// minDetectWords is the shortest Latin-script text whose detected language is
// trusted; shorter texts ("Good app") are too ambiguous to reject.
const minDetectWords = 3

// IsEnglish reports whether text should be kept by an English-only filter.
// Text in a non-Latin script (Ge'ez/Amharic, Arabic, ...) is rejected. Latin
// text is rejected only when it is long enough and reliably detected as
// another language. Text without letters is kept.
func IsEnglish(text string) bool {
	if !strings.ContainsFunc(text, unicode.IsLetter) {
		return true
	}
	if script := whatlanggo.DetectScript(text); script != nil && script != unicode.Latin {
		return false
	}
	if len(strings.Fields(text)) < minDetectWords {
		return true
	}
	info := whatlanggo.Detect(text)
	return info.Lang == whatlanggo.Eng || !info.IsReliable()
}
