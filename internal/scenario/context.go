package scenario

import (
	"regexp"
	"strings"

	"github.com/driverlab/persona-gateway/internal/lang"
)

// Stored scenario texts address the participant directly ("you are stuck
// in traffic"). The system prompt needs the same situation described from
// the outside, so DriverContext rewrites the text into third-person
// driver framing. This is a lexical rewrite over an ordered rule list,
// not grammatical generation; text matching no rule passes through with
// normalized whitespace only.

type rewriteRule struct {
	pattern *regexp.Regexp
	repl    string
}

var introEN = regexp.MustCompile(`(?i)^(?:imagine(?: that)?|picture this|suppose(?: that)?)[,:]?\s+`)
var introDE = regexp.MustCompile(`(?i)^(?:stell(?:e)? dir vor|angenommen)[,:]?\s+`)

// Ordered: longer phrases before the bare pronoun so "you are" never
// degrades into "the driver are".
var rulesEN = []rewriteRule{
	{regexp.MustCompile(`(?i)\byou are\b`), "the driver is"},
	{regexp.MustCompile(`(?i)\byou're\b`), "the driver is"},
	{regexp.MustCompile(`(?i)\byou have\b`), "the driver has"},
	{regexp.MustCompile(`(?i)\byou've\b`), "the driver has"},
	{regexp.MustCompile(`(?i)\byou feel\b`), "the driver feels"},
	{regexp.MustCompile(`(?i)\byou see\b`), "the driver sees"},
	{regexp.MustCompile(`(?i)\byou drive\b`), "the driver drives"},
	{regexp.MustCompile(`(?i)\byou want\b`), "the driver wants"},
	{regexp.MustCompile(`(?i)\byourself\b`), "themselves"},
	{regexp.MustCompile(`(?i)\byours\b`), "the driver's"},
	{regexp.MustCompile(`(?i)\byour\b`), "the driver's"},
	{regexp.MustCompile(`(?i)\byou\b`), "the driver"},
}

var rulesDE = []rewriteRule{
	{regexp.MustCompile(`(?i)\bdu bist\b`), "der Fahrer ist"},
	{regexp.MustCompile(`(?i)\bdu hast\b`), "der Fahrer hat"},
	{regexp.MustCompile(`(?i)\bdu stehst\b`), "der Fahrer steht"},
	{regexp.MustCompile(`(?i)\bdu siehst\b`), "der Fahrer sieht"},
	{regexp.MustCompile(`(?i)\bdu f(?:ä|ae)hrst\b`), "der Fahrer fährt"},
	{regexp.MustCompile(`(?i)\bdu willst\b`), "der Fahrer will"},
	{regexp.MustCompile(`\b[Dd]ein(e|em|en|er|es)?\b`), "sein$1"},
	{regexp.MustCompile(`(?i)\bdich\b`), "den Fahrer"},
	{regexp.MustCompile(`(?i)\bdir\b`), "dem Fahrer"},
	{regexp.MustCompile(`(?i)\bdu\b`), "der Fahrer"},
}

var (
	multiSpace  = regexp.MustCompile(`\s+`)
	multiPeriod = regexp.MustCompile(`\.{2,}`)
)

// DriverContext rewrites raw scenario text into third-person driver
// framing for the given locale and guarantees exactly one terminal
// punctuation mark at the end. Total: never fails, never returns "".
func DriverContext(text string, l lang.Lang) string {
	out := strings.TrimSpace(text)
	if out == "" {
		return ""
	}

	intro, rules := introEN, rulesEN
	if l == lang.DE {
		intro, rules = introDE, rulesDE
	}

	out = intro.ReplaceAllString(out, "")
	for _, rule := range rules {
		out = rule.pattern.ReplaceAllString(out, rule.repl)
	}

	out = multiPeriod.ReplaceAllString(out, ".")
	out = strings.TrimSpace(multiSpace.ReplaceAllString(out, " "))
	return ensureTerminal(out)
}

// ensureTerminal trims any trailing run of terminal punctuation down to a
// single mark, appending a period when none is present.
func ensureTerminal(s string) string {
	trimmed := strings.TrimRight(s, ".!?")
	if trimmed == s {
		return s + "."
	}
	mark := s[len(trimmed)]
	return trimmed + string(mark)
}
