package sfh_test

import (
	"fmt"
	"testing"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

func TestEntry_Paths(t *testing.T) {
	target := sfh.Target{Workspace: "acme", Address: "10.0.0.5", Port: 445, Kind: model.KindSMB}

	e := sfh.NewEntry(target, "backup", `finance\2023\Salaries.XLSX`, 2048)
	if e.FullPath != "finance/2023/Salaries.XLSX" {
		t.Errorf("backslashes not normalized: %q", e.FullPath)
	}
	if e.FileName() != "Salaries.XLSX" {
		t.Errorf("FileName() = %q", e.FileName())
	}
	if e.Extension() != "xlsx" {
		t.Errorf("Extension() = %q", e.Extension())
	}
	if got := e.String(); got != "smb://10.0.0.5:445/backup/finance/2023/Salaries.XLSX" {
		t.Errorf("String() = %q", got)
	}

	local := sfh.NewEntry(sfh.Target{Workspace: "acme", Address: "127.0.0.1", Kind: model.KindLocal}, "", "/etc/passwd", 100)
	if got := local.String(); got != "local://127.0.0.1/etc/passwd" {
		t.Errorf("String() = %q", got)
	}
	if local.Extension() != "" {
		t.Errorf("Extension() = %q, want empty", local.Extension())
	}
}

func TestEntry_BytesCachesFetch(t *testing.T) {
	calls := 0
	e := sfh.NewEntry(sfh.Target{}, "", "a.txt", 5)
	e.Fetch = func() ([]byte, error) {
		calls++
		return []byte("hello"), nil
	}

	for i := 0; i < 3; i++ {
		got, err := e.Bytes()
		if err != nil {
			t.Fatalf("Bytes() error = %v", err)
		}
		if string(got) != "hello" {
			t.Fatalf("Bytes() = %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("fetch ran %d times, want 1", calls)
	}
}

func TestEntry_BytesFetchError(t *testing.T) {
	e := sfh.NewEntry(sfh.Target{}, "", "a.txt", 5)
	e.Fetch = func() ([]byte, error) { return nil, fmt.Errorf("permission denied") }
	if _, err := e.Bytes(); err == nil {
		t.Fatal("fetch error swallowed")
	}
}

func TestEntry_OversizeHasNoContent(t *testing.T) {
	target := sfh.Target{Workspace: "acme", Address: "10.0.0.5", Port: 445, Kind: model.KindSMB}
	e := sfh.NewEntry(target, "backup", "dump.sql", 5<<30)
	e.Oversize = true

	if _, err := e.Bytes(); err == nil {
		t.Fatal("oversize content served")
	}

	want := fmt.Sprintf("[file (%s) not imported as file size (%d) is above threshold]", e.String(), int64(5<<30))
	if got := string(e.Placeholder()); got != want {
		t.Errorf("Placeholder() = %q, want %q", got, want)
	}
}

func TestLimits(t *testing.T) {
	l := sfh.Limits{
		FileSizeThreshold:    100,
		ArchiveSizeThreshold: 1000,
		ArchiveExtensions:    []string{"zip", "tar.gz"},
	}

	if !l.IsArchive("Backup.ZIP") {
		t.Error("case-insensitive archive extension rejected")
	}
	if !l.IsArchive("dump.tar.gz") {
		t.Error("compound extension rejected")
	}
	if l.IsArchive("notes.txt") {
		t.Error("plain file treated as archive")
	}

	if l.BelowThreshold("a.txt", 0) {
		t.Error("empty file importable")
	}
	if !l.BelowThreshold("a.txt", 100) {
		t.Error("file at ceiling rejected")
	}
	if l.BelowThreshold("a.txt", 101) {
		t.Error("file above ceiling accepted")
	}
	// Archives get the larger ceiling.
	if !l.BelowThreshold("a.zip", 1000) {
		t.Error("archive within its ceiling rejected")
	}
	if l.BelowThreshold("a.zip", 1001) {
		t.Error("archive above its ceiling accepted")
	}

	unlimited := sfh.Limits{}
	if !unlimited.BelowThreshold("a.txt", 1<<40) {
		t.Error("zero ceiling must mean unlimited")
	}
}
