// Package intent maps free-text chat input to canned responses and
// autocomplete prompts using ordered keyword rules.
package intent

import "strings"

// Rule pairs trigger keywords with a canned response. Triggers are
// matched as lowercase substrings.
type Rule struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
	Response string   `yaml:"response"`
}

// matches reports whether any trigger occurs in lower.
func (r Rule) matches(lower string) bool {
	for _, t := range r.Triggers {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// Matcher selects a response with first-match-wins over ordered rules.
type Matcher struct {
	rules    []Rule
	fallback string
}

// NewMatcher creates a Matcher. Rule order is significant.
func NewMatcher(rules []Rule, fallback string) *Matcher {
	return &Matcher{rules: append([]Rule(nil), rules...), fallback: fallback}
}

// Match returns the response of the first rule any of whose triggers
// occurs in text, or the fallback when none does.
func (m *Matcher) Match(text string) string {
	if r, ok := m.MatchRule(text); ok {
		return r.Response
	}
	return m.fallback
}

// MatchRule returns the first matching rule.
func (m *Matcher) MatchRule(text string) (Rule, bool) {
	lower := strings.ToLower(text)
	for _, r := range m.rules {
		if r.matches(lower) {
			return r, true
		}
	}
	return Rule{}, false
}

// Fallback returns the response used when no rule matches.
func (m *Matcher) Fallback() string {
	return m.fallback
}
