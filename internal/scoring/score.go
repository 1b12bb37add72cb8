// Package scoring computes the weighted shelf-compliance score of a scan.
package scoring

import (
	"math"

	"github.com/yangwenmai/storeops/internal/model"
)

// Default scoring weights. They sum to 100.
const (
	DefaultWeightPlacement = 35
	DefaultWeightMisplaced = 25
	DefaultWeightFill      = 20
	DefaultWeightVariety   = 10
	DefaultWeightFacing    = 10
)

// Compliance band thresholds.
const (
	HighComplianceMin     = 90
	ModerateComplianceMin = 70
)

// Weights configures the contribution of each factor.
type Weights struct {
	Placement float64
	Misplaced float64
	Fill      float64
	Variety   float64
	Facing    float64
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		Placement: DefaultWeightPlacement,
		Misplaced: DefaultWeightMisplaced,
		Fill:      DefaultWeightFill,
		Variety:   DefaultWeightVariety,
		Facing:    DefaultWeightFacing,
	}
}

// Breakdown holds each weighted sub-score and the rounded total.
type Breakdown struct {
	Placement float64 `json:"placement"`
	Misplaced float64 `json:"misplaced"`
	Fill      float64 `json:"fill"`
	Variety   float64 `json:"variety"`
	Facing    float64 `json:"facing"`
	Total     int     `json:"total"`
	Band      Band    `json:"band"`
}

// Sum returns the unrounded total of the sub-scores.
func (b Breakdown) Sum() float64 {
	return b.Placement + b.Misplaced + b.Fill + b.Variety + b.Facing
}

// ComplianceScore returns the rounded compliance score of s. The score is
// not clamped: over-detection relative to the expected SKU count can push
// it above 100.
func ComplianceScore(s model.ScanSummary) int {
	return Compute(s).Total
}

// Compute scores s with the default weights.
func Compute(s model.ScanSummary) Breakdown {
	return ComputeWith(s, DefaultWeights())
}

// ComputeWith scores s with w. Zero denominators fall back to 0 for the
// placement, fill and variety factors and to the full weight for the
// misplaced and facing factors.
func ComputeWith(s model.ScanSummary, w Weights) Breakdown {
	var b Breakdown

	expected := float64(s.TotalExpectedSKUs)
	detected := float64(s.Correct + s.Misplaced)
	slots := float64(s.Correct + s.Misplaced + s.Low + s.Empty)

	if expected > 0 {
		b.Placement = float64(s.Correct) / expected * w.Placement
		b.Variety = detected / expected * w.Variety
	}

	b.Misplaced = w.Misplaced
	b.Facing = w.Facing
	if detected > 0 {
		b.Misplaced = (detected - float64(s.Misplaced)) / detected * w.Misplaced
		b.Facing = (detected - float64(s.FacingIssues)) / detected * w.Facing
	}

	if slots > 0 {
		b.Fill = (slots - float64(s.Empty) - float64(s.Low)) / slots * w.Fill
	}

	b.Total = roundHalfUp(b.Sum())
	b.Band = BandFor(b.Total)
	return b
}

// roundHalfUp rounds x to the nearest integer, with halves going toward
// positive infinity.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
