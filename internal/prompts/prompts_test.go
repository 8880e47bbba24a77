package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driverlab/persona-gateway/internal/lang"
)

func TestSystemEmbedsScenarioContext(t *testing.T) {
	en := System("the driver is stuck in traffic.", lang.EN)
	assert.Contains(t, en, "Scenario context: the driver is stuck in traffic.")
	assert.Contains(t, en, "exactly two short sentences")

	de := System("der Fahrer steht im Stau.", lang.DE)
	assert.Contains(t, de, "Szenario: der Fahrer steht im Stau.")
	assert.Contains(t, de, "genau zwei kurzen Sätzen")
}

func TestSystemPersonalizedAppendsSummaryOnly(t *testing.T) {
	base := System("ctx.", lang.EN)
	pers := SystemPersonalized("ctx.", "N=5 summary", lang.EN)

	assert.True(t, strings.HasPrefix(pers, base))
	assert.Equal(t, base+" Persona hints: N=5 summary", pers)
	assert.NotContains(t, base, "Persona hints")
}

func TestUserRestatesConstraints(t *testing.T) {
	u := User("I'm stuck in traffic and bored", lang.EN)
	assert.Contains(t, u, "Driver transcript (lang=en): I'm stuck in traffic and bored.")
	assert.Contains(t, u, "strictly in English")
	assert.Contains(t, u, "lists")
}

func TestCheckinVariant(t *testing.T) {
	sys := CheckinSystem("ctx.", "summary", lang.EN)
	assert.Contains(t, sys, "under 30 words")
	assert.Contains(t, sys, "first person")
	assert.Contains(t, sys, "Persona hints: summary")

	usr := CheckinUser(lang.DE)
	assert.Contains(t, usr, "Check-in-Frage")
}

func TestRewriteTargetsLanguage(t *testing.T) {
	sys, usr := Rewrite("Hallo Fahrer", lang.EN)
	assert.Contains(t, sys, "in English only")
	assert.Contains(t, usr, "two sentences in English: Hallo Fahrer")

	sys, _ = Rewrite("hello driver", lang.DE)
	assert.Contains(t, sys, "in Deutsch only")
}

func TestDebugFormat(t *testing.T) {
	assert.Equal(t, "SYSTEM:\nsys\n\nUSER:\nusr", Debug("sys", "usr"))
}
