package persona

import (
	"fmt"
	"strings"

	"github.com/driverlab/persona-gateway/internal/lang"
)

// Directive rule names, also the keys of the rule tables.
const (
	RuleDefault               = "default"
	RuleHighNeuroticism       = "high_neuroticism"
	RuleHighExtraversion      = "high_extraversion"
	RuleHighAgreeableness     = "high_agreeableness"
	RuleLowAgreeableness      = "low_agreeableness"
	RuleDBQViolationsHigh     = "dbq_violations_high"
	RuleDBQErrorsHigh         = "dbq_errors_high"
	RuleDBQLapsesHigh         = "dbq_lapses_high"
	RuleBSSSExperienceHigh    = "bsss_experience_high"
	RuleBSSSThrillHigh        = "bsss_thrill_high"
	RuleBSSSDisinhibitionHigh = "bsss_disinhibition_high"
	RuleBSSSBoredomHigh       = "bsss_boredom_high"
)

const (
	highCutoff = 4
	lowCutoff  = 2
)

var rulesDE = map[string]string{
	RuleDefault:               "Sprich mit dem Fahrer so wie es angemessen ist. Beruecksichtige seine Persoenlichkeitsmerkmale und Fahrweise.",
	RuleHighNeuroticism:       "Fahrer wirkt aengstlich; mehr Bestaetigung, langsames Tempo, Stress anerkennen.",
	RuleHighExtraversion:      "Fahrer ist gesellig; Ton warm und kurz ermutigend halten.",
	RuleHighAgreeableness:     "Fahrer mag Zusammenarbeit; inklusive, sanfte Formulierungen nutzen.",
	RuleLowAgreeableness:      "Fahrer koennte widersprechen; direkt, faktenbasiert, Nutzen betonen.",
	RuleDBQViolationsHigh:     "Neigt zu Regelverstoessen; Sicherheit, Legalitaet und Folgen klar hervorheben.",
	RuleDBQErrorsHigh:         "Fehleranfaellig; Schritt-fuer-Schritt, eindeutig, ggf. Bestaetigung einholen.",
	RuleDBQLapsesHigh:         "Unaufmerksamkeiten moeglich; simpel halten, Kernpunkte kurz wiederholen.",
	RuleBSSSExperienceHigh:    "Sucht neue Erfahrungen; Vorschlaege sicher rahmen.",
	RuleBSSSThrillHigh:        "Mag Thrill; Risiko herunterspielen, sichere Alternativen anbieten.",
	RuleBSSSDisinhibitionHigh: "Impulsiv; Zurueckhaltung, ruhiger Ton, sofort sichere Schritte betonen.",
	RuleBSSSBoredomHigh:       "Wird schnell gelangweilt; kurzweilig, aber sicher bleiben (Musik/Podcast).",
}

var rulesEN = map[string]string{
	RuleDefault:               "Speak to the driver as appropriate. Take their personality traits and driving style into account.",
	RuleHighNeuroticism:       "Driver tends to be anxious; give more reassurance, keep a slow pace, acknowledge stress.",
	RuleHighExtraversion:      "Driver is sociable; keep the tone warm and briefly encouraging.",
	RuleHighAgreeableness:     "Driver likes cooperation; use inclusive, gentle phrasing.",
	RuleLowAgreeableness:      "Driver may push back; be direct, fact-based, emphasize benefits.",
	RuleDBQViolationsHigh:     "Prone to rule violations; clearly stress safety, legality, and consequences.",
	RuleDBQErrorsHigh:         "Error-prone; go step by step, be unambiguous, ask for confirmation if needed.",
	RuleDBQLapsesHigh:         "Lapses of attention possible; keep it simple, briefly repeat key points.",
	RuleBSSSExperienceHigh:    "Seeks new experiences; frame suggestions safely.",
	RuleBSSSThrillHigh:        "Enjoys thrills; play down risk, offer safe alternatives.",
	RuleBSSSDisinhibitionHigh: "Impulsive; show restraint, calm tone, stress immediate safe steps.",
	RuleBSSSBoredomHigh:       "Gets bored quickly; stay engaging but safe (music/podcast).",
}

// Rules returns the directive table for the given locale. The returned map
// is the live table; callers must treat it as read-only.
func Rules(l lang.Lang) map[string]string {
	if l == lang.DE {
		return rulesDE
	}
	return rulesEN
}

// Directive looks up one rule text by name in the given locale.
func Directive(name string, l lang.Lang) string {
	return Rules(l)[name]
}

// Directives evaluates the threshold rules against a profile and returns
// the triggered directive fragments in declaration order, starting with
// the default directive. Agreeableness is the one trait with a distinct
// low-side rule.
func Directives(p Profile, l lang.Lang) []string {
	rules := Rules(l)
	out := []string{rules[RuleDefault]}

	add := func(triggered bool, name string) {
		if !triggered {
			return
		}
		if text := rules[name]; text != "" {
			out = append(out, text)
		}
	}

	add(p.Neuroticism >= highCutoff, RuleHighNeuroticism)
	add(p.Extraversion >= highCutoff, RuleHighExtraversion)
	add(p.Agreeableness >= highCutoff, RuleHighAgreeableness)
	add(p.Agreeableness <= lowCutoff, RuleLowAgreeableness)
	add(p.DBQViolations >= highCutoff, RuleDBQViolationsHigh)
	add(p.DBQErrors >= highCutoff, RuleDBQErrorsHigh)
	add(p.DBQLapses >= highCutoff, RuleDBQLapsesHigh)
	add(p.BSSSExperience >= highCutoff, RuleBSSSExperienceHigh)
	add(p.BSSSThrill >= highCutoff, RuleBSSSThrillHigh)
	add(p.BSSSDisinhibition >= highCutoff, RuleBSSSDisinhibitionHigh)
	add(p.BSSSBoredom >= highCutoff, RuleBSSSBoredomHigh)

	return out
}

// Recap renders the literal numeric recap line listing every raw score
// with its locale-specific label, in the declared order.
func Recap(p Profile, l lang.Lang) string {
	if l == lang.DE {
		return fmt.Sprintf(
			"Big Five (1-5): O=%d, C=%d, E=%d, A=%d, N=%d. "+
				"Mini-DBQ (1-5): Verstoesse=%d, Fehler=%d, Unaufmerksamkeiten=%d. "+
				"BSSS (1-7): Erfahrung=%d, Thrill=%d, Enthemmung=%d, Langeweile=%d.",
			p.Openness, p.Conscientiousness, p.Extraversion, p.Agreeableness, p.Neuroticism,
			p.DBQViolations, p.DBQErrors, p.DBQLapses,
			p.BSSSExperience, p.BSSSThrill, p.BSSSDisinhibition, p.BSSSBoredom,
		)
	}
	return fmt.Sprintf(
		"Big Five (1-5): O=%d, C=%d, E=%d, A=%d, N=%d. "+
			"Mini-DBQ (1-5): violations=%d, errors=%d, lapses=%d. "+
			"BSSS (1-7): experience=%d, thrill=%d, disinhibition=%d, boredom=%d.",
		p.Openness, p.Conscientiousness, p.Extraversion, p.Agreeableness, p.Neuroticism,
		p.DBQViolations, p.DBQErrors, p.DBQLapses,
		p.BSSSExperience, p.BSSSThrill, p.BSSSDisinhibition, p.BSSSBoredom,
	)
}

// Summary builds the full persona summary: triggered directives followed by
// the numeric recap, joined with single spaces. Deterministic, no failure
// modes; an unsupported locale falls back to English.
func Summary(p Profile, l lang.Lang) string {
	parts := Directives(p, l)
	parts = append(parts, Recap(p, l))

	kept := parts[:0]
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}
