// Package conform normalizes raw model output into the exact shape the
// in-car voice channel needs: no stage directions, no meta chatter, the
// requested language only, and exactly two short spoken sentences.
package conform

import (
	"regexp"
	"strings"
)

var (
	stageDirectionRe = regexp.MustCompile(`\*[^*]+\*`)
	bracketAsideRe   = regexp.MustCompile(`\[[^\]]+\]`)
	metaOpenerRe     = regexp.MustCompile(`(?i)^(?:here(?:'| i)s my answer:|here(?:'| i)s the answer:|here(?:'| i)s your answer:|klar[!:]?|sicher[!:]?|okay[,:]?|ok[,:]?|alright[,:]?|sure[,:]?|sure thing[,:]?|of course[,:]?|absolutely[,:]?|yes[,:]?|yeah[,:]?|oh[,:]?)\s*`)
	thingOpenerRe    = regexp.MustCompile(`(?i)^(?:thing[,.]?)\s*`)
	labelPrefixRe    = regexp.MustCompile(`(?i)^(?:fahrer[-\s]*transkript:|fahrer[-\s]*sagt:|antwortsprache:|driver transcript:|driver says:|response language:)\s*`)
	multiSpaceRe     = regexp.MustCompile(`\s{2,}`)
)

// Sanitize strips the chat-style decoration small local models like to
// produce: asterisk stage directions, bracketed asides, filler openers
// ("Sure,", "Klar!"), and echoed prompt labels.
func Sanitize(text string) string {
	cleaned := stageDirectionRe.ReplaceAllString(text, "")
	cleaned = bracketAsideRe.ReplaceAllString(cleaned, "")
	cleaned = metaOpenerRe.ReplaceAllString(cleaned, "")
	cleaned = thingOpenerRe.ReplaceAllString(cleaned, "")
	cleaned = labelPrefixRe.ReplaceAllString(cleaned, "")
	cleaned = multiSpaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
