package models

import "strings"

// Rank is a member's achievement tier. The god tier has three mutually
// exclusive alignments which all share the same Tier.
type Rank string

const (
	RankIron         Rank = "iron"
	RankMithril      Rank = "mithril"
	RankAdamant      Rank = "adamant"
	RankRune         Rank = "rune"
	RankDragon       Rank = "dragon"
	RankMyth         Rank = "myth"
	RankLegend       Rank = "legend"
	RankGod          Rank = "god"
	RankGodGuthix    Rank = "god_guthix"
	RankGodSaradomin Rank = "god_saradomin"
	RankGodZamorak   Rank = "god_zamorak"
)

var rankTiers = map[Rank]int{
	RankIron:         0,
	RankMithril:      1,
	RankAdamant:      2,
	RankRune:         3,
	RankDragon:       4,
	RankMyth:         5,
	RankLegend:       6,
	RankGod:          7,
	RankGodGuthix:    7,
	RankGodSaradomin: 7,
	RankGodZamorak:   7,
}

// rank role names as they appear in the guild, lowercased
var rankRoles = map[string]Rank{
	"iron":    RankIron,
	"mithril": RankMithril,
	"adamant": RankAdamant,
	"rune":    RankRune,
	"dragon":  RankDragon,
	"myth":    RankMyth,
	"legend":  RankLegend,
	"god":     RankGod,
}

var godAlignmentRoles = map[string]Rank{
	"guthix":    RankGodGuthix,
	"saradomin": RankGodSaradomin,
	"zamorak":   RankGodZamorak,
}

// Valid reports whether r is a known rank
func (r Rank) Valid() bool {
	_, ok := rankTiers[r]
	return ok
}

// Tier returns the rank's position in the ladder, -1 for unknown ranks
func (r Rank) Tier() int {
	if tier, ok := rankTiers[r]; ok {
		return tier
	}
	return -1
}

// IsGod reports whether r is the god tier, aligned or not
func (r Rank) IsGod() bool {
	return r.Tier() == rankTiers[RankGod]
}

// DisplayName returns a human readable rank name, e.g. "God (Zamorak)"
func (r Rank) DisplayName() string {
	name, alignment, aligned := strings.Cut(string(r), "_")
	display := capitalize(name)
	if aligned {
		display += " (" + capitalize(alignment) + ")"
	}
	return display
}

// IsRankRole reports whether a guild role name carries rank information
func IsRankRole(roleName string) bool {
	key := strings.ToLower(strings.TrimSpace(roleName))
	_, isRank := rankRoles[key]
	_, isAlignment := godAlignmentRoles[key]
	return isRank || isAlignment
}

// RankFromRoleNames derives a rank from the guild roles a member holds.
// The highest rank role wins; a god with an alignment role resolves to the
// aligned rank. ok is false when no rank role is held.
func RankFromRoleNames(roleNames []string) (rank Rank, ok bool) {
	var alignment Rank
	for _, name := range roleNames {
		key := strings.ToLower(strings.TrimSpace(name))
		if candidate, isRank := rankRoles[key]; isRank {
			if !ok || candidate.Tier() > rank.Tier() {
				rank = candidate
				ok = true
			}
			continue
		}
		if aligned, isAlignment := godAlignmentRoles[key]; isAlignment && alignment == "" {
			alignment = aligned
		}
	}

	if ok && rank == RankGod && alignment != "" {
		rank = alignment
	}
	return rank, ok
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
