package translate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/RadhiFadlillah/whatlanggo"
	"golang.org/x/text/unicode/norm"
)

// Sentinel values written in place of a translation. Rows carrying either
// are dropped from the translated table.
const (
	InvalidText      = "Invalid Text"
	TranslationError = "Translation Error"
)

const minTextRunes = 2

// Validate normalises s to NFC and trims it. Texts shorter than two runes
// are rejected.
func Validate(s string) (string, bool) {
	s = strings.TrimSpace(norm.NFC.String(s))
	if utf8.RuneCountInString(s) < minTextRunes {
		return "", false
	}
	return s, true
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_'
	})
}

// EnglishShare splits text into groups of groupSize words and returns the
// fraction of groups detected as English. Text without words scores zero.
func EnglishShare(text string, groupSize int) float64 {
	if groupSize <= 0 {
		groupSize = 20
	}
	ws := words(text)
	if len(ws) == 0 {
		return 0
	}

	groups, english := 0, 0
	for i := 0; i < len(ws); i += groupSize {
		end := min(i+groupSize, len(ws))
		groups++
		if whatlanggo.DetectLang(strings.Join(ws[i:end], " ")) == whatlanggo.Eng {
			english++
		}
	}
	return float64(english) / float64(groups)
}

// Chunk splits text into pieces of at most limit runes, breaking on
// whitespace where possible. Words longer than limit are cut.
func Chunk(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, string(cur))
			cur = cur[:0]
		}
	}

	for _, w := range strings.Fields(text) {
		r := []rune(w)
		for len(r) > limit {
			flush()
			chunks = append(chunks, string(r[:limit]))
			r = r[limit:]
		}
		if len(r) == 0 {
			continue
		}
		need := len(r)
		if len(cur) > 0 {
			need++
		}
		if len(cur)+need > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, r...)
	}
	flush()
	return chunks
}
