package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRulesFile(t *testing.T) {
	rf, err := DefaultRulesFile()
	if err != nil {
		t.Fatalf("DefaultRulesFile() error = %v", err)
	}

	if len(rf.MatchRules) == 0 {
		t.Fatal("no bundled match rules")
	}
	if rf.MaxFileSizeBytes <= 0 {
		t.Errorf("MaxFileSizeBytes = %d", rf.MaxFileSizeBytes)
	}
	if rf.MaxArchiveSizeBytes <= rf.MaxFileSizeBytes {
		t.Errorf("archive ceiling %d not above file ceiling %d", rf.MaxArchiveSizeBytes, rf.MaxFileSizeBytes)
	}
	if len(rf.SupportedArchives) == 0 {
		t.Error("no supported archive extensions")
	}

	for i, spec := range rf.MatchRules {
		switch spec.SearchLocation {
		case "file_name", "full_path", "file_content":
		default:
			t.Errorf("rule %d: bad search location %q", i, spec.SearchLocation)
		}
		if spec.SearchPattern == "" || spec.Category == "" {
			t.Errorf("rule %d: incomplete spec %+v", i, spec)
		}
	}
}

func TestLoadRulesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.jsonc")

	// JSONC: comments and trailing commas are tolerated.
	content := `{
  // local override
  "max_file_size_bytes": 2048,
  "match_rules": [
    {"search_location": "file_name", "category": "test", "relevance": "low", "accuracy": "low",
     "search_pattern": "^flag\\.txt$"},
  ],
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rf, err := LoadRulesFile(path)
	if err != nil {
		t.Fatalf("LoadRulesFile() error = %v", err)
	}
	if rf.MaxFileSizeBytes != 2048 {
		t.Errorf("MaxFileSizeBytes = %d", rf.MaxFileSizeBytes)
	}
	if len(rf.MatchRules) != 1 || rf.MatchRules[0].SearchPattern != `^flag\.txt$` {
		t.Errorf("rules = %+v", rf.MatchRules)
	}
}

func TestLoadRulesFile_Errors(t *testing.T) {
	if _, err := LoadRulesFile(filepath.Join(t.TempDir(), "missing.jsonc")); err == nil {
		t.Error("missing file accepted")
	}

	empty := filepath.Join(t.TempDir(), "empty.jsonc")
	os.WriteFile(empty, []byte(`{"match_rules": []}`), 0o644)
	if _, err := LoadRulesFile(empty); err == nil {
		t.Error("rules file without rules accepted")
	}
}

func TestWriteDefaultRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "rules.jsonc")
	if err := WriteDefaultRules(path); err != nil {
		t.Fatalf("WriteDefaultRules() error = %v", err)
	}
	rf, err := LoadRulesFile(path)
	if err != nil {
		t.Fatalf("LoadRulesFile() error = %v", err)
	}
	if len(rf.MatchRules) == 0 {
		t.Error("written rules empty")
	}
}
