package tagging

import (
	"fmt"
	"strings"
)

// Tier records which cascade step resolved a province.
type Tier int

const (
	// Unresolved is the zero value: no tier has answered yet.
	Unresolved Tier = iota
	Containment
	Nearby
	Override
	Fallback
	Isolated
)

// Tiers lists the resolving tiers in cascade order.
var Tiers = []Tier{Containment, Nearby, Override, Fallback, Isolated}

func (t Tier) String() string {
	switch t {
	case Containment:
		return "containment"
	case Nearby:
		return "nearby"
	case Override:
		return "override"
	case Fallback:
		return "fallback"
	case Isolated:
		return "isolated"
	default:
		return "unresolved"
	}
}

// ParseTier is the inverse of Tier.String.
func ParseTier(s string) (Tier, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, tier := range Tiers {
		if tier.String() == needle {
			return tier, nil
		}
	}
	return Unresolved, fmt.Errorf("unknown tier %q", s)
}

// Assignment is the outcome of the cascade for one province.
type Assignment struct {
	Country string
	Tier    Tier
	// DistanceKm is set by the nearby and fallback tiers.
	DistanceKm float64
	// Keyword is the override keyword that matched, for the override tier.
	Keyword string
}

// Resolved reports whether the assignment carries a country.
func (a Assignment) Resolved() bool {
	return a.Tier != Unresolved && a.Country != ""
}
