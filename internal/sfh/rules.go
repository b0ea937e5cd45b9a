package sfh

import (
	"fmt"
	"regexp"
	"sort"

	"sfh-go/internal/model"
)

// Rule is a compiled matching rule. Patterns are evaluated
// case-insensitively; content rules search for at least one occurrence
// anywhere in the raw bytes while path and name rules must match
// anchored at the start of the full path or basename.
type Rule struct {
	Location  model.SearchLocation
	Pattern   string
	Category  string
	Relevance model.Tier
	Accuracy  model.Tier

	re *regexp.Regexp
}

// NewRule compiles a rule. The pattern is compiled case-insensitively.
func NewRule(location model.SearchLocation, pattern, category string, relevance, accuracy model.Tier) (*Rule, error) {
	switch location {
	case model.SearchFileContent, model.SearchFullPath, model.SearchFileName:
	default:
		return nil, fmt.Errorf("unknown search location: %q", location)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return &Rule{
		Location:  location,
		Pattern:   pattern,
		Category:  category,
		Relevance: relevance,
		Accuracy:  accuracy,
		re:        re,
	}, nil
}

// Priority ranks rules for evaluation order. Content rules outrank
// path rules outrank name rules; within a location the relevance and
// accuracy tiers dominate and the pattern length is the final
// tie-break favoring more specific patterns.
func (r *Rule) Priority() int {
	return r.Location.Weight() + r.Relevance.RelevanceWeight() + r.Accuracy.AccuracyWeight() + len(r.Pattern)
}

// Matches reports whether the rule's pattern matches the entry at the
// rule's own search location. content is ignored for non-content rules.
func (r *Rule) Matches(e *Entry, content []byte) bool {
	switch r.Location {
	case model.SearchFileContent:
		return r.re.Match(content)
	case model.SearchFullPath:
		return matchesAnchored(r.re, e.FullPath)
	case model.SearchFileName:
		return matchesAnchored(r.re, e.FileName())
	}
	return false
}

// Record returns the persistable form of the rule.
func (r *Rule) Record() *model.MatchRule {
	return &model.MatchRule{
		Location:  r.Location,
		Pattern:   r.Pattern,
		Category:  r.Category,
		Relevance: r.Relevance,
		Accuracy:  r.Accuracy,
	}
}

func (r *Rule) String() string {
	return fmt.Sprintf("priority: %d, category: %s, search_location: %s, relevance: %s, accuracy: %s, search_pattern: %s",
		r.Priority(), r.Category, r.Location, r.Relevance, r.Accuracy, r.Pattern)
}

// matchesAnchored reports whether re matches s starting at position 0.
func matchesAnchored(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0
}

// RuleSet holds the configured rules bucketed per search location,
// each bucket sorted once by descending priority at construction.
type RuleSet struct {
	buckets map[model.SearchLocation][]*Rule
}

// NewRuleSet buckets and sorts the given rules.
func NewRuleSet(rules []*Rule) *RuleSet {
	buckets := make(map[model.SearchLocation][]*Rule)
	for _, r := range rules {
		buckets[r.Location] = append(buckets[r.Location], r)
	}
	for _, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Priority() > bucket[j].Priority()
		})
	}
	return &RuleSet{buckets: buckets}
}

// Evaluate returns the highest-priority rule scoped to location that
// matches the entry, or nil. Lower-priority rules are never evaluated
// once a match is found.
func (s *RuleSet) Evaluate(e *Entry, content []byte, location model.SearchLocation) *Rule {
	for _, r := range s.buckets[location] {
		if r.Matches(e, content) {
			return r
		}
	}
	return nil
}

// All returns every rule in the set.
func (s *RuleSet) All() []*Rule {
	var result []*Rule
	for _, bucket := range s.buckets {
		result = append(result, bucket...)
	}
	return result
}

// Len returns the number of rules in the set.
func (s *RuleSet) Len() int {
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}
