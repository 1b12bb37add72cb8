package intent

import "strings"

// Topic is the detail view a chat message routes to.
type Topic string

// Topic constants
const (
	TopicInventory Topic = "inventory"
	TopicPlanogram Topic = "planogram"
	TopicEquipment Topic = "equipment"
	TopicSales     Topic = "sales"
)

var topicKeywords = []struct {
	topic    Topic
	keywords []string
}{
	{TopicInventory, []string{"restock", "inventory", "stock", "supply"}},
	{TopicPlanogram, []string{"planogram", "layout", "shelf", "compliance"}},
	{TopicEquipment, []string{"equipment", "temperature", "cooler", "maintenance"}},
	{TopicSales, []string{"sales", "performance", "revenue", "sellers"}},
}

// ClassifyTopic returns the first topic whose keywords occur in text,
// defaulting to TopicInventory.
func ClassifyTopic(text string) Topic {
	lower := strings.ToLower(text)
	for _, tk := range topicKeywords {
		for _, k := range tk.keywords {
			if strings.Contains(lower, k) {
				return tk.topic
			}
		}
	}
	return TopicInventory
}
