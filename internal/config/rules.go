package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

//go:embed rules.jsonc
var defaultRulesFile []byte

// MatchRuleSpec is one match-rule record from the rules file.
type MatchRuleSpec struct {
	SearchLocation string `json:"search_location"`
	Category       string `json:"category"`
	Relevance      string `json:"relevance"`
	Accuracy       string `json:"accuracy"`
	SearchPattern  string `json:"search_pattern"`
}

// RulesFile is the parsed rules configuration: the match rules, the
// recognized archive extensions and the two size ceilings. Ceilings at
// or below zero mean unlimited.
type RulesFile struct {
	MaxFileSizeBytes    int64           `json:"max_file_size_bytes"`
	MaxArchiveSizeBytes int64           `json:"max_archive_size_bytes"`
	SupportedArchives   []string        `json:"supported_archives"`
	MatchRules          []MatchRuleSpec `json:"match_rules"`
}

// LoadRulesFile reads and parses a rules file. The file may contain
// comments and trailing commas (JSONC).
func LoadRulesFile(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	return parseRules(data, path)
}

// DefaultRulesFile parses the rules bundled into the binary.
func DefaultRulesFile() (*RulesFile, error) {
	return parseRules(defaultRulesFile, "embedded rules")
}

// WriteDefaultRules writes the bundled rules file to the given path.
func WriteDefaultRules(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	if err := os.WriteFile(path, defaultRulesFile, 0644); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	return nil
}

func parseRules(data []byte, source string) (*RulesFile, error) {
	var rf RulesFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &rf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	if len(rf.MatchRules) == 0 {
		return nil, fmt.Errorf("%s contains no match rules", source)
	}
	return &rf, nil
}
