package app

import (
	"fmt"
	"regexp"

	"sfh-go/internal/config"
	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

// buildRules compiles the rule specs from the rules file into matcher
// rules. A single bad spec fails the whole load so typos surface
// immediately instead of silently weakening a scan.
func buildRules(rf *config.RulesFile) ([]*sfh.Rule, error) {
	rules := make([]*sfh.Rule, 0, len(rf.MatchRules))
	for _, spec := range rf.MatchRules {
		r, err := sfh.NewRule(
			model.SearchLocation(spec.SearchLocation),
			spec.SearchPattern,
			spec.Category,
			model.Tier(spec.Relevance),
			model.Tier(spec.Accuracy),
		)
		if err != nil {
			return nil, fmt.Errorf("rule %s/%s: %w", spec.Category, spec.SearchPattern, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// DomainRules builds content rules that flag files mentioning accounts
// of the given AD domains (DOMAIN\user or DOMAIN/user).
func DomainRules(domains []string) ([]*sfh.Rule, error) {
	rules := make([]*sfh.Rule, 0, len(domains))
	for _, d := range domains {
		pattern := regexp.QuoteMeta(d) + `[\\/]\w+`
		r, err := sfh.NewRule(model.SearchFileContent, pattern, "domain_user", model.TierMedium, model.TierMedium)
		if err != nil {
			return nil, fmt.Errorf("domain rule for %s: %w", d, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// UPNRules builds content rules that flag files mentioning user
// principal names under the given suffixes (user@suffix).
func UPNRules(suffixes []string) ([]*sfh.Rule, error) {
	rules := make([]*sfh.Rule, 0, len(suffixes))
	for _, s := range suffixes {
		pattern := `\w+@` + regexp.QuoteMeta(s)
		r, err := sfh.NewRule(model.SearchFileContent, pattern, "domain_user", model.TierMedium, model.TierMedium)
		if err != nil {
			return nil, fmt.Errorf("upn rule for %s: %w", s, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
