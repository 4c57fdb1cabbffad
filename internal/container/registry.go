// Package container defines the reward container types and their gates.
package container

import (
	"fmt"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
)

// Kind identifies a container type.
type Kind string

const (
	KindPoke   Kind = "poke"
	KindGreat  Kind = "great"
	KindMaster Kind = "master"
)

// Type is a static redemption option.
type Type struct {
	Kind         Kind
	Name         string
	FloorCost    int
	PerLevelRate int
	MinLevel     int
	Weights      model.RarityWeights
}

// Cost returns max(FloorCost, level*PerLevelRate).
func (t Type) Cost(level int) int {
	return max(t.FloorCost, level*t.PerLevelRate)
}

// Eligibility describes whether a user may open a container right now.
type Eligibility struct {
	Cost          int
	Affordable    bool
	LevelMet      bool
	RequiredLevel int
	Shortfall     int // cost - currentXP when not affordable
}

// OK reports whether both gates hold.
func (e Eligibility) OK() bool { return e.Affordable && e.LevelMet }

// Reason is a short user-facing description of the unmet gate.
func (e Eligibility) Reason() string {
	switch {
	case !e.LevelMet:
		return fmt.Sprintf("requires level %d", e.RequiredLevel)
	case !e.Affordable:
		return fmt.Sprintf("need %d more XP", e.Shortfall)
	default:
		return ""
	}
}

// Check evaluates the cost and level gates for the given stats.
func (t Type) Check(level, currentXP int) Eligibility {
	cost := t.Cost(level)
	e := Eligibility{
		Cost:          cost,
		Affordable:    currentXP >= cost,
		LevelMet:      level >= t.MinLevel,
		RequiredLevel: t.MinLevel,
	}
	if !e.Affordable {
		e.Shortfall = cost - currentXP
	}
	return e
}

var types = []Type{
	{
		Kind: KindPoke, Name: "Poké Ball",
		FloorCost: 50, PerLevelRate: 15, MinLevel: 1,
		Weights: model.RarityWeights{Common: 0.80, Rare: 0.18, Legendary: 0.02},
	},
	{
		Kind: KindGreat, Name: "Great Ball",
		FloorCost: 100, PerLevelRate: 25, MinLevel: 5,
		Weights: model.RarityWeights{Common: 0.60, Rare: 0.35, Legendary: 0.05},
	},
	{
		Kind: KindMaster, Name: "Master Ball",
		FloorCost: 200, PerLevelRate: 40, MinLevel: 10,
		Weights: model.RarityWeights{Common: 0.30, Rare: 0.50, Legendary: 0.20},
	},
}

// All returns the container types in ascending cost order.
func All() []Type {
	return append([]Type(nil), types...)
}

// Lookup returns the container type for kind.
func Lookup(kind Kind) (Type, error) {
	for _, t := range types {
		if t.Kind == kind {
			return t, nil
		}
	}
	return Type{}, fmt.Errorf("%w: %q", errs.ErrUnknownContainer, kind)
}
