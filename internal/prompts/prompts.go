package prompts

import (
	"fmt"

	"github.com/driverlab/persona-gateway/internal/lang"
)

// Prompt text is deliberately repetitive: the sentence-count target, the
// no-meta rule, and the single-language rule appear in both the system
// and the user prompt because small local models follow the restated
// instruction far more reliably than the system prompt alone.

// System builds the persona-agnostic system prompt around the resolved
// third-person scenario context.
func System(scenarioContext string, l lang.Lang) string {
	if l == lang.DE {
		return "Du bist ein Sprach-Assistent im Fahrzeug. Antworte ausschließlich knapp auf Deutsch, in genau zwei kurzen Sätzen. " +
			"Verwende keine englischen Wörter oder Halbsätze; falls du Englisch nutzt, wiederhole sofort nur auf Deutsch. " +
			"Keine Meta-Einleitungen wie 'Hier ist meine Antwort', keine Listen oder Aufzählungen; antworte direkt, klar und grammatikalisch sauber. " +
			"Szenario: " + scenarioContext
	}
	return "You are a voice assistant in a vehicle. Answer only shortly in English, in exactly two short sentences. " +
		"Do not use any German words; if you do, restate in English only. " +
		"No meta openers like 'Here is my answer', no lists or bullet points; answer directly, clearly, with proper grammar. " +
		"Scenario context: " + scenarioContext
}

// SystemPersonalized appends the persona summary to the base system
// prompt. Only the personalized condition uses this variant.
func SystemPersonalized(scenarioContext, personaSummary string, l lang.Lang) string {
	return System(scenarioContext, l) + " Persona hints: " + personaSummary
}

// User builds the per-turn user prompt around the driver transcript.
func User(transcript string, l lang.Lang) string {
	if l == lang.DE {
		return fmt.Sprintf(
			"Fahrer-Transkript (Sprache=de): %s. "+
				"Antworte strikt auf Deutsch; keine englischen Wörter oder Mischungen. "+
				"Keine Meta-Sätze (z.B. 'hier ist meine Antwort'), keine Listen. Gib genau zwei klare, grammatikalisch korrekte Sätze.",
			transcript)
	}
	return fmt.Sprintf(
		"Driver transcript (lang=en): %s. "+
			"Answer strictly in English; do not mix languages. "+
			"Avoid meta phrases (e.g., 'here is my answer') and lists. Provide exactly two clear, grammatically correct sentences.",
		transcript)
}

// CheckinSystem is the check-in variant: a tighter length bound and a ban
// on first-person affect, since the assistant opens the exchange itself.
func CheckinSystem(scenarioContext, personaSummary string, l lang.Lang) string {
	if l == lang.DE {
		return "Du bist ein Sprach-Assistent im Fahrzeug. Antworte ausschließlich auf Deutsch, maximal zwei kurze Sätze und insgesamt unter 30 Wörtern. " +
			"Verwende keine englischen Wörter oder Halbsätze. Sprich nicht über deine eigenen Gefühle in der Ich-Form. " +
			"Szenario: " + scenarioContext + ". Persona hints: " + personaSummary
	}
	return "You are a voice assistant in a vehicle. Answer only in English, max two short sentences and under 30 words in total. " +
		"Do not use any German words. Do not describe your own feelings in the first person. " +
		"Scenario: " + scenarioContext + ". Persona hints: " + personaSummary
}

// CheckinUser asks for the empathetic opening question.
func CheckinUser(l lang.Lang) string {
	if l == lang.DE {
		return "Beginne mit einer kurzen, empathischen Check-in-Frage wie 'Wie geht es Ihnen?'. " +
			"Bleibe ausschließlich auf Deutsch; keine englischen Wörter. Kontext nur kurz erwähnen."
	}
	return "Start with a brief empathetic check-in like 'How are you doing?'. " +
		"Stay strictly in English; no German words. Mention driving context only briefly."
}

// Rewrite builds the one-shot repair instruction for a reply that came
// back in the wrong language.
func Rewrite(text string, l lang.Lang) (system, user string) {
	target := l.Name()
	system = fmt.Sprintf(
		"Rewrite the assistant reply in %s only. Output exactly two short, complete sentences. No lists, no meta, no quotes.",
		target)
	user = fmt.Sprintf("Rewrite this as two sentences in %s: %s", target, text)
	return system, user
}

// Debug renders both prompt strings for the operator panel.
func Debug(system, user string) string {
	return fmt.Sprintf("SYSTEM:\n%s\n\nUSER:\n%s", system, user)
}
