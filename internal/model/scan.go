package model

// ScanSummary holds the counts produced by one shelf scan.
type ScanSummary struct {
	Correct           int `json:"correct" yaml:"correct"`
	Misplaced         int `json:"misplaced" yaml:"misplaced"`
	Low               int `json:"low" yaml:"low"`
	Empty             int `json:"empty" yaml:"empty"`
	TotalExpectedSKUs int `json:"total_expected_skus" yaml:"total_expected_skus"`
	FacingIssues      int `json:"facing_issues" yaml:"facing_issues"`
}

// ShelfScanScenario is the result of a (simulated) shelf scan.
type ShelfScanScenario struct {
	SessionID       string         `json:"session_id,omitempty" yaml:"-"`
	Name            string         `json:"name" yaml:"name"`
	DetectedItems   []DetectedItem `json:"detected_items" yaml:"detected_items"`
	Summary         ScanSummary    `json:"summary" yaml:"summary"`
	ComplianceScore int            `json:"compliance_score" yaml:"-"`
}

// ConvertibleItems returns the low and empty detections in scan order.
func (s ShelfScanScenario) ConvertibleItems() []DetectedItem {
	var out []DetectedItem
	for _, d := range s.DetectedItems {
		if d.Convertible() {
			out = append(out, d)
		}
	}
	return out
}

// Sender identifies who authored a conversation turn.
type Sender string

// Sender constants
const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ConversationTurn is one message in the chat transcript.
type ConversationTurn struct {
	ID        string `json:"id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	// Topic is the detail view an assistant reply links to.
	Topic string `json:"topic,omitempty"`
}

// SuggestionEntry is an autocomplete prompt and the keywords that surface it.
type SuggestionEntry struct {
	Text     string   `json:"text" yaml:"text"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}
