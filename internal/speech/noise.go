package speech

import "strings"

var noisePatterns = map[string]bool{
	"crunching": true, "static": true, "silence": true, "noise": true,
	"inaudible": true, "unintelligible": true, "background noise": true,
	"music": true, "typing": true, "breathing": true, "sigh": true,
	"cough": true, "sneeze": true, "laughter": true, "applause": true,
	"you": true, "the": true, "a": true, "um": true, "uh": true,
	"hmm": true, "ah": true, "oh": true, "mhm": true,
}

// IsNoiseTranscript reports whether an ASR result is likely booth noise
// rather than a participant utterance.
func IsNoiseTranscript(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	// Whisper wraps non-speech events like *static*, [noise], (cough).
	if strings.HasPrefix(text, "*") && strings.HasSuffix(text, "*") {
		return true
	}
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		return true
	}
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		return true
	}
	return noisePatterns[strings.ToLower(text)]
}
