// Package catalog loads the mock feeds, shelf-scan scenarios and chat rules
// the engine runs against.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yangwenmai/storeops/internal/intent"
	"github.com/yangwenmai/storeops/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrUnknownCategory is returned when a feed is requested for a category
// the catalog does not know.
var ErrUnknownCategory = errors.New("unknown category")

// Catalog is the full set of inbound mock data.
type Catalog struct {
	Recommendations []model.Recommendation     `yaml:"recommendations"`
	Tasks           []model.Task               `yaml:"tasks"`
	Ops             map[model.Category]OpsFeed `yaml:"ops"`
	Scenarios       []model.ShelfScanScenario  `yaml:"scenarios"`
	Chat            Chat                       `yaml:"chat"`
}

// OpsFeed is the insight and alert feed of one category.
type OpsFeed struct {
	Insights []model.OpsInsight `yaml:"insights"`
	Alerts   []model.OpsAlert   `yaml:"alerts"`
}

// Chat holds the assistant's canned texts and rules.
type Chat struct {
	Welcome        string                  `yaml:"welcome"`
	Fallback       string                  `yaml:"fallback"`
	Rules          []intent.Rule           `yaml:"rules"`
	Prompts        []model.SuggestionEntry `yaml:"prompts"`
	QuickQuestions []string                `yaml:"quick_questions"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load returns the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for cat, feed := range c.Ops {
		if _, ok := model.ParseCategory(string(cat)); !ok || cat == model.CategoryAll {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
		}
		for i := range feed.Insights {
			feed.Insights[i].Category = cat
		}
		for i := range feed.Alerts {
			feed.Alerts[i].Category = cat
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Scenarios) == 0 {
		return errors.New("catalog: at least one scan scenario is required")
	}
	if c.Chat.Fallback == "" {
		return errors.New("catalog: chat fallback is required")
	}
	for _, r := range c.Chat.Rules {
		if len(r.Triggers) == 0 {
			return fmt.Errorf("catalog: chat rule %q has no triggers", r.Name)
		}
	}
	for _, t := range c.Tasks {
		if !model.ValidStatus(t.Status) {
			return fmt.Errorf("catalog: task %s has unknown status %q", t.ID, t.Status)
		}
	}
	return nil
}

// Feed returns the insight and alert feed for category. CategoryAll merges
// every category in catalog order, keeping the first record of each id.
func (c *Catalog) Feed(category model.Category) (OpsFeed, error) {
	if category != model.CategoryAll {
		if _, ok := model.ParseCategory(string(category)); !ok {
			return OpsFeed{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		feed := c.Ops[category]
		return OpsFeed{
			Insights: append([]model.OpsInsight(nil), feed.Insights...),
			Alerts:   append([]model.OpsAlert(nil), feed.Alerts...),
		}, nil
	}

	var out OpsFeed
	seenInsight := make(map[int]bool)
	seenAlert := make(map[int]bool)
	for _, cat := range model.Categories {
		feed := c.Ops[cat]
		for _, in := range feed.Insights {
			if !seenInsight[in.ID] {
				seenInsight[in.ID] = true
				out.Insights = append(out.Insights, in)
			}
		}
		for _, a := range feed.Alerts {
			if !seenAlert[a.ID] {
				seenAlert[a.ID] = true
				out.Alerts = append(out.Alerts, a)
			}
		}
	}
	return out, nil
}

// Matcher builds the chat intent matcher.
func (c *Catalog) Matcher() *intent.Matcher {
	return intent.NewMatcher(c.Chat.Rules, c.Chat.Fallback)
}
