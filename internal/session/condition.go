// Package session orchestrates one participant run: resolving the
// transcript, building both conditions' prompts, invoking the model
// sequentially per condition, and collecting the shaped replies.
package session

import "math/rand/v2"

// Condition identifies one of the two experimental arms.
type Condition string

const (
	Personalized    Condition = "personalized"
	NonPersonalized Condition = "non_personalized"
)

// Title renders the condition for condition-scoped error turns, with
// each word segment capitalized ("Personalized", "Non_Personalized").
func (c Condition) Title() string {
	if c == NonPersonalized {
		return "Non_Personalized"
	}
	return "Personalized"
}

// Label renders the condition for operator display.
func (c Condition) Label() string {
	if c == NonPersonalized {
		return "Non Personalized"
	}
	return "Personalized"
}

// Order is the presentation sequence of the two conditions.
type Order [2]Condition

// Order preferences accepted from the operator panel. Anything else
// falls through to a random draw.
const (
	OrderPersonalizedFirst    = "personalized_first"
	OrderNonPersonalizedFirst = "non_personalized_first"
	OrderRandom               = "random"
)

// ResolveOrder turns an order preference into a concrete pair. The
// random mode is uniform over both orderings.
func ResolveOrder(pref string) Order {
	switch pref {
	case OrderPersonalizedFirst:
		return Order{Personalized, NonPersonalized}
	case OrderNonPersonalizedFirst:
		return Order{NonPersonalized, Personalized}
	default:
		if rand.IntN(2) == 0 {
			return Order{Personalized, NonPersonalized}
		}
		return Order{NonPersonalized, Personalized}
	}
}
