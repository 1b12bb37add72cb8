package scoring

// Band is the qualitative label of a compliance score.
type Band string

// Band constants
const (
	BandHigh     Band = "High Compliance"
	BandModerate Band = "Moderate Compliance"
	BandLow      Band = "Low Compliance"
)

// BandFor classifies score.
func BandFor(score int) Band {
	switch {
	case score >= HighComplianceMin:
		return BandHigh
	case score >= ModerateComplianceMin:
		return BandModerate
	default:
		return BandLow
	}
}
