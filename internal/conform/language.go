package conform

import (
	"regexp"
	"strings"

	"github.com/driverlab/persona-gateway/internal/lang"
)

// Words that small models commonly leave behind from the wrong language.
// Scrubbed as whole words, case-insensitive.
var (
	leaksIntoGerman = []string{
		"already", "there", "sure", "ok", "okay", "right", "traffic",
		"driver", "bored", "jam", "stuck", "thing", "yeah", "yes",
	}
	leaksIntoEnglish = []string{
		"schon", "doch", "nicht", "und", "aber", "bitte", "danke",
		"gerne", "vielleicht", "ruhig", "sicher", "straße", "strasse",
		"fahr", "fahrt",
	}

	leakResDE = compileWordRes(leaksIntoGerman)
	leakResEN = compileWordRes(leaksIntoEnglish)
)

func compileWordRes(words []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		res = append(res, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return res
}

// ScrubLeaks removes cross-language filler words from text meant for
// the given language and collapses the resulting double spaces.
func ScrubLeaks(text string, l lang.Lang) string {
	res := leakResEN
	if l == lang.DE {
		res = leakResDE
	}
	for _, re := range res {
		text = re.ReplaceAllString(text, "")
	}
	text = multiSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Detector classifies which supported language a text is dominantly
// written in, or Unknown when the markers are inconclusive.
type Detector interface {
	Classify(text string) lang.Lang
}

var (
	englishMarkers = compileWordRes([]string{
		"the", "and", "you", "already", "there", "traffic", "road", "car", "drive",
	})
	germanMarkers = compileWordRes([]string{
		"und", "nicht", "schon", "dich", "mir", "dir", "bitte", "danke", "fahrt", "strasse", "straße",
	})
)

// MarkerDetector counts common function words per language. It reports a
// language only when that language has at least two marker hits and
// strictly more than the other; anything closer is Unknown.
type MarkerDetector struct{}

func (MarkerDetector) Classify(text string) lang.Lang {
	eng := countHits(englishMarkers, text)
	ger := countHits(germanMarkers, text)
	switch {
	case eng >= 2 && eng > ger:
		return lang.EN
	case ger >= 2 && ger > eng:
		return lang.DE
	default:
		return lang.Unknown
	}
}

func countHits(markers []*regexp.Regexp, text string) int {
	hits := 0
	for _, re := range markers {
		if re.MatchString(text) {
			hits++
		}
	}
	return hits
}

// WrongLanguage reports whether the text is dominantly written in the
// other supported language than the target.
func WrongLanguage(d Detector, text string, target lang.Lang) bool {
	detected := d.Classify(text)
	return detected != lang.Unknown && detected != target
}
