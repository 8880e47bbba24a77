package lang

// Lang identifies one of the two response locales the study supports.
type Lang string

const (
	DE      Lang = "de"
	EN      Lang = "en"
	Unknown Lang = ""
)

// Parse maps a language tag to a supported locale, falling back to English.
func Parse(tag string) Lang {
	if tag == "de" {
		return DE
	}
	return EN
}

// FromTag maps a language tag to a locale, or Unknown when the tag names
// neither study locale. Used for detector output, where "not one of
// ours" must stay visible instead of defaulting.
func FromTag(tag string) Lang {
	switch tag {
	case "de":
		return DE
	case "en":
		return EN
	default:
		return Unknown
	}
}

// Supported reports whether the value is one of the two study locales.
func (l Lang) Supported() bool {
	return l == DE || l == EN
}

// Other returns the opposite locale.
func (l Lang) Other() Lang {
	if l == DE {
		return EN
	}
	return DE
}

// Name returns the language name used in rewrite instructions.
func (l Lang) Name() string {
	if l == DE {
		return "Deutsch"
	}
	return "English"
}
