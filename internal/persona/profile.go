package persona

// Profile holds one participant's trait scores as entered for a run.
// Big Five and Mini-DBQ items are on a 1-5 scale, as are the four BSSS
// sub-scores in this study's short form. Profiles are value types and
// never mutated after creation.
type Profile struct {
	Openness          int `json:"o"`
	Conscientiousness int `json:"c"`
	Extraversion      int `json:"e"`
	Agreeableness     int `json:"a"`
	Neuroticism       int `json:"n"`

	DBQViolations int `json:"dbq_violations"`
	DBQErrors     int `json:"dbq_errors"`
	DBQLapses     int `json:"dbq_lapses"`

	BSSSExperience    int `json:"bsss_experience"`
	BSSSThrill        int `json:"bsss_thrill"`
	BSSSDisinhibition int `json:"bsss_disinhibition"`
	BSSSBoredom       int `json:"bsss_boredom"`
}

const (
	scoreMin = 1
	scoreMax = 5
)

// Clamped returns a copy with every score forced into the 1-5 range.
func (p Profile) Clamped() Profile {
	p.Openness = clamp(p.Openness)
	p.Conscientiousness = clamp(p.Conscientiousness)
	p.Extraversion = clamp(p.Extraversion)
	p.Agreeableness = clamp(p.Agreeableness)
	p.Neuroticism = clamp(p.Neuroticism)
	p.DBQViolations = clamp(p.DBQViolations)
	p.DBQErrors = clamp(p.DBQErrors)
	p.DBQLapses = clamp(p.DBQLapses)
	p.BSSSExperience = clamp(p.BSSSExperience)
	p.BSSSThrill = clamp(p.BSSSThrill)
	p.BSSSDisinhibition = clamp(p.BSSSDisinhibition)
	p.BSSSBoredom = clamp(p.BSSSBoredom)
	return p
}

func clamp(v int) int {
	if v < scoreMin {
		return scoreMin
	}
	if v > scoreMax {
		return scoreMax
	}
	return v
}
