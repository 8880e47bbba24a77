package conform

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/driverlab/persona-gateway/internal/lang"
	"github.com/driverlab/persona-gateway/internal/metrics"
)

const (
	maxResponseChars = 280
	maxResponseWords = 30
	// A truncated second sentence keeps at least this many words so it
	// still reads as a sentence rather than a fragment.
	minTailWords = 4
)

var (
	ellipsisRe   = regexp.MustCompile(`\.{3,}`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// splitSentences cuts text after a terminal mark followed by whitespace.
// The terminal mark stays with its sentence.
func splitSentences(text string) []string {
	var parts []string
	var current strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && isSpace(runes[i+1]) {
			parts = append(parts, current.String())
			current.Reset()
			for i+1 < len(runes) && isSpace(runes[i+1]) {
				i++
			}
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// ensurePunct trims the sentence and guarantees it ends with a terminal
// mark, adding a period when none is present.
func ensurePunct(sentence string) string {
	sent := strings.TrimSpace(sentence)
	if sent == "" {
		return ""
	}
	last := sent[len(sent)-1]
	if last != '.' && last != '!' && last != '?' {
		sent += "."
	}
	return sent
}

func fallbackSentence(idx int, l lang.Lang) string {
	if l == lang.DE {
		if idx == 0 {
			return "Bitte konzentriere dich auf die Straße."
		}
		return "Bleib ruhig und halte Abstand."
	}
	if idx == 0 {
		return "Stay focused on the road."
	}
	return "Keep calm and maintain safe distance."
}

// EnsureTwoSentences reshapes arbitrary text into exactly two complete
// sentences, each ending in a period. Missing sentences are filled from
// fixed safe-driving fallbacks in the target language.
func EnsureTwoSentences(text string, l lang.Lang) string {
	normalized := ellipsisRe.ReplaceAllString(text, ".")
	normalized = strings.TrimSpace(whitespaceRe.ReplaceAllString(normalized, " "))

	var sentences []string
	for _, part := range splitSentences(normalized) {
		cleaned := strings.TrimRight(strings.TrimSpace(part), ".!?")
		if cleaned != "" {
			sentences = append(sentences, ensurePunct(cleaned))
		}
		if len(sentences) == 2 {
			break
		}
	}
	for len(sentences) < 2 {
		sentences = append(sentences, ensurePunct(fallbackSentence(len(sentences), l)))
	}
	return strings.Join(sentences[:2], " ")
}

// Truncate enforces the spoken-reply budget on already sanitized text:
// two sentences, at most 30 words and 280 characters combined. Each
// over-long sentence is cut at the word budget; if the reply still
// overflows the character budget the tail becomes a short fixed tip,
// and a first sentence that alone breaks the budget is replaced by the
// fixed fallback.
func Truncate(text string, l lang.Lang) string {
	cleaned := ScrubLeaks(text, l)
	shaped := EnsureTwoSentences(cleaned, l)

	var parts []string
	for _, p := range splitSentences(strings.TrimSpace(shaped)) {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		parts = []string{""}
	}
	if len(parts) < 2 {
		parts = append(parts, ensurePunct(parts[0]))
	}

	s1Words := strings.Fields(parts[0])
	s2Words := strings.Fields(parts[1])
	if len(s1Words) > maxResponseWords-minTailWords {
		s1Words = s1Words[:maxResponseWords-minTailWords]
		parts[0] = ensurePunct(strings.Join(s1Words, " "))
		metrics.ShapeTruncations.Inc()
	}
	if len(s1Words)+len(s2Words) > maxResponseWords {
		allowed := maxResponseWords - len(s1Words)
		if allowed < minTailWords {
			allowed = minTailWords
		}
		if allowed < len(s2Words) {
			s2Words = s2Words[:allowed]
		}
		parts[1] = ensurePunct(strings.Join(s2Words, " "))
		metrics.ShapeTruncations.Inc()
	}

	result := strings.TrimSpace(parts[0] + " " + parts[1])
	if utf8.RuneCountInString(result) > maxResponseChars {
		shortTip := "Stay alert and drive safely."
		if l == lang.DE {
			shortTip = "Bleib aufmerksam und fahr sicher."
		}
		lead := parts[0]
		if utf8.RuneCountInString(lead)+1+utf8.RuneCountInString(shortTip) > maxResponseChars {
			lead = fallbackSentence(0, l)
		}
		result = strings.TrimSpace(multiSpaceRe.ReplaceAllString(lead+" "+shortTip, " "))
		metrics.ShapeTruncations.Inc()
	}

	result = ScrubLeaks(result, l)
	return EnsureTwoSentences(result, l)
}
