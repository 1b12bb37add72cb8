package model

import "strconv"

// Recommendation is a reorder suggestion shown to store managers.
type Recommendation struct {
	ID                  string   `json:"id" yaml:"id"`
	Category            Category `json:"category" yaml:"category"`
	SKU                 string   `json:"sku" yaml:"sku"`
	ProductName         string   `json:"product_name" yaml:"product_name"`
	SuggestedReorderQty int      `json:"suggested_reorder_qty" yaml:"suggested_reorder_qty"`
	CurrentStock        int      `json:"current_stock" yaml:"current_stock"`
	ForecastedDemand    int      `json:"forecasted_demand" yaml:"forecasted_demand"`
	Reason              string   `json:"reason,omitempty" yaml:"reason"`
}

// OpsInsight is an operational suggestion that can become an investigation.
type OpsInsight struct {
	ID          int      `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Action      string   `json:"action" yaml:"action"`
	Category    Category `json:"category" yaml:"category"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Risk        string   `json:"risk,omitempty" yaml:"risk"`
	Rationale   string   `json:"rationale,omitempty" yaml:"rationale"`
}

// OpsAlert is a notice that can only be dismissed.
type OpsAlert struct {
	ID             int      `json:"id" yaml:"id"`
	Category       Category `json:"category" yaml:"category"`
	Title          string   `json:"title" yaml:"title"`
	Urgency        string   `json:"urgency" yaml:"urgency"`
	Message        string   `json:"message" yaml:"message"`
	Recommendation string   `json:"recommendation,omitempty" yaml:"recommendation"`
	Timestamp      string   `json:"timestamp" yaml:"timestamp"`
}

// DetectedItemType classifies a shelf-scan detection.
type DetectedItemType string

// Detected item type constants
const (
	DetectedCorrect   DetectedItemType = "correct"
	DetectedMisplaced DetectedItemType = "misplaced"
	DetectedLow       DetectedItemType = "low"
	DetectedEmpty     DetectedItemType = "empty"
)

// BoundingBox locates a detection on the shelf image, in percent.
type BoundingBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// DetectedItem is a single detection produced by a shelf scan.
type DetectedItem struct {
	ID      string           `json:"id" yaml:"id"`
	Type    DetectedItemType `json:"type" yaml:"type"`
	Box     BoundingBox      `json:"box" yaml:"box"`
	Label   string           `json:"label" yaml:"label"`
	Tooltip string           `json:"tooltip" yaml:"tooltip"`
}

// Convertible reports whether the detection can become a restock task.
func (d DetectedItem) Convertible() bool {
	return d.Type == DetectedLow || d.Type == DetectedEmpty
}

// Task builds the restock task for a low or empty detection.
func (d DetectedItem) Task(id, timestamp string, category Category) Task {
	desc := "Restock empty slot: " + d.Label
	if d.Type == DetectedLow {
		desc = "Restock low item: " + d.Label
	}
	return Task{
		ID:          id,
		Description: desc,
		Details:     d.Tooltip,
		Status:      StatusToDo,
		Type:        TaskTypeRestocking,
		Priority:    PriorityHigh,
		Source:      SourceAutonomous,
		Category:    category,
		Timestamp:   timestamp,
	}
}

// Task builds the restock task for a recommendation. The task keeps the
// recommendation's own category.
func (r Recommendation) Task(id, timestamp string) Task {
	return Task{
		ID:          id,
		Description: "Restock: " + r.ProductName,
		Details:     "Restock SKU: " + r.SKU + ". Suggested: " + strconv.Itoa(r.SuggestedReorderQty) + ".",
		Status:      StatusToDo,
		Type:        TaskTypeRestocking,
		Priority:    PriorityHigh,
		Source:      SourceStoreManager,
		Category:    r.Category,
		Timestamp:   timestamp,
	}
}

// Task builds the investigation task for an insight. Insights are tagged
// with the caller's active category, not their own.
func (i OpsInsight) Task(id, timestamp string, category Category) Task {
	return Task{
		ID:          id,
		Description: i.Action,
		Details:     i.Title,
		Status:      StatusToDo,
		Type:        TaskTypeInvestigation,
		Priority:    PriorityMedium,
		Source:      SourceAutonomous,
		Category:    category,
		Timestamp:   timestamp,
	}
}
