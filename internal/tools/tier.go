package tools

import (
	"fmt"
	"strings"
)

// Tier is the ordered set of tool bundles selectable through ENABLED_TOOLS.
// Each tier enables every tool of the tiers below it.
type Tier int

const (
	TierBasic Tier = iota
	TierStandard
	TierFull
	TierAll
)

var tierNames = [...]string{"basic", "standard", "full", "all"}

// String returns the tier name.
func (t Tier) String() string {
	if t < TierBasic || t > TierAll {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Includes reports whether a tool assigned to other is enabled under t.
func (t Tier) Includes(other Tier) bool {
	return other <= t
}

// ParseTier parses a tier name, case-insensitively. An empty value selects
// TierBasic.
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TierBasic, nil
	}
	for i, name := range tierNames {
		if s == name {
			return Tier(i), nil
		}
	}
	return TierBasic, fmt.Errorf("unknown tier %q (want one of %s)", s, strings.Join(tierNames[:], ", "))
}

// Region restricts the coordinates a tool can answer for.
type Region int

const (
	RegionAny Region = iota
	RegionUS
)

func (r Region) String() string {
	if r == RegionUS {
		return "US"
	}
	return "none"
}
