// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/member"
)

// MyCube is the small cube used throughout the examples: one numeric
// measure and one dimension of each built-in kind.
func MyCube() *cube.Cube {
	return cube.MustNew(cube.Definition{
		Name: "MyCube",
		Measures: map[string]member.Member{
			"myMeasure": member.Number(),
		},
		Dimensions: map[string]member.Member{
			"myDimension": member.String(),
			"myNumber":    member.Number(),
			"myBool":      member.Boolean(),
			"myTime":      member.Time(),
		},
		Segments: []string{"mySegment"},
	})
}

// Orders covers every built-in kind, decimal included, plus two time
// dimensions and two segments.
func Orders() *cube.Cube {
	return cube.MustNew(cube.Definition{
		Name: "Orders",
		Measures: map[string]member.Member{
			"count":   member.Number(),
			"revenue": member.Decimal(),
		},
		Dimensions: map[string]member.Member{
			"status":    member.String(),
			"city":      member.String(),
			"amount":    member.Number(),
			"paid":      member.Boolean(),
			"createdAt": member.Time(),
			"shippedAt": member.Time(),
		},
		Segments: []string{"completed", "highValue"},
	})
}
