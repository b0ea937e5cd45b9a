package database

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:", nil, nil)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	if _, err := db.db.Exec(Schema); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func mustRule(t *testing.T, location model.SearchLocation, pattern string, relevance, accuracy model.Tier) *sfh.Rule {
	t.Helper()
	rule, err := sfh.NewRule(location, pattern, "test", relevance, accuracy)
	if err != nil {
		t.Fatalf("NewRule(%q) error = %v", pattern, err)
	}
	return rule
}

func testFinding(workspace, address, fullPath string, content []byte, rule *sfh.Rule) *sfh.Finding {
	e := sfh.NewEntry(sfh.Target{
		Workspace: workspace,
		Address:   address,
		Port:      445,
		Kind:      model.KindSMB,
	}, "share", fullPath, int64(len(content)))

	return &sfh.Finding{
		Target:    e.Target,
		Share:     e.Share,
		FullPath:  e.FullPath,
		FileName:  e.FileName(),
		Extension: e.Extension(),
		File: &model.StoredFile{
			Content:   content,
			SizeBytes: int64(len(content)),
			SHA256:    sfh.Digest(content),
			FileType:  e.Extension(),
			MimeType:  "text/plain",
			Review:    model.ReviewTBD,
		},
		Rule: rule,
	}
}

func TestSQLiteDatabase_Workspaces(t *testing.T) {
	t.Run("returns nil when workspace not found", func(t *testing.T) {
		db := newTestDB(t)

		ws, err := db.FindWorkspaceByName("nonexistent")
		if err != nil {
			t.Fatalf("FindWorkspaceByName() error = %v", err)
		}
		if ws != nil {
			t.Errorf("FindWorkspaceByName() = %v, want nil", ws)
		}
	})

	t.Run("creates and finds workspace", func(t *testing.T) {
		db := newTestDB(t)

		created, err := db.CreateWorkspace("acme-2026")
		if err != nil {
			t.Fatalf("CreateWorkspace() error = %v", err)
		}
		if created.ID == "" {
			t.Error("ID is empty")
		}
		if created.CreatedAt.IsZero() {
			t.Error("CreatedAt is zero")
		}

		found, err := db.FindWorkspaceByName("acme-2026")
		if err != nil {
			t.Fatalf("FindWorkspaceByName() error = %v", err)
		}
		if found == nil {
			t.Fatal("FindWorkspaceByName() returned nil, want workspace")
		}
		if found.ID != created.ID {
			t.Errorf("ID = %v, want %v", found.ID, created.ID)
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		db := newTestDB(t)

		if _, err := db.CreateWorkspace("acme-2026"); err != nil {
			t.Fatalf("CreateWorkspace() error = %v", err)
		}
		if _, err := db.CreateWorkspace("acme-2026"); err == nil {
			t.Error("CreateWorkspace() expected error for duplicate name, got nil")
		}
	})

	t.Run("lists workspaces sorted by name", func(t *testing.T) {
		db := newTestDB(t)

		for _, name := range []string{"zeta", "alpha"} {
			if _, err := db.CreateWorkspace(name); err != nil {
				t.Fatalf("CreateWorkspace(%q) error = %v", name, err)
			}
		}

		list, err := db.ListWorkspaces()
		if err != nil {
			t.Fatalf("ListWorkspaces() error = %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("ListWorkspaces() returned %d workspaces, want 2", len(list))
		}
		if list[0].Name != "alpha" || list[1].Name != "zeta" {
			t.Errorf("ListWorkspaces() order = [%s %s], want [alpha zeta]", list[0].Name, list[1].Name)
		}
	})
}

func TestSQLiteDatabase_RegisterService(t *testing.T) {
	t.Run("errors when workspace missing", func(t *testing.T) {
		db := newTestDB(t)

		_, err := db.RegisterService("nonexistent", "10.0.0.5", 445, model.KindSMB)
		if err == nil {
			t.Error("RegisterService() expected error for missing workspace, got nil")
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := newTestDB(t)
		if _, err := db.CreateWorkspace("ws"); err != nil {
			t.Fatalf("CreateWorkspace() error = %v", err)
		}

		first, err := db.RegisterService("ws", "10.0.0.5", 445, model.KindSMB)
		if err != nil {
			t.Fatalf("RegisterService() error = %v", err)
		}
		if first.Complete {
			t.Error("new service is marked complete")
		}

		second, err := db.RegisterService("ws", "10.0.0.5", 445, model.KindSMB)
		if err != nil {
			t.Fatalf("RegisterService() second call error = %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("second registration created new service: %s != %s", second.ID, first.ID)
		}
	})

	t.Run("distinguishes ports and kinds", func(t *testing.T) {
		db := newTestDB(t)
		if _, err := db.CreateWorkspace("ws"); err != nil {
			t.Fatalf("CreateWorkspace() error = %v", err)
		}

		smb, err := db.RegisterService("ws", "10.0.0.5", 445, model.KindSMB)
		if err != nil {
			t.Fatalf("RegisterService(smb) error = %v", err)
		}
		ftp, err := db.RegisterService("ws", "10.0.0.5", 21, model.KindFTP)
		if err != nil {
			t.Fatalf("RegisterService(ftp) error = %v", err)
		}
		if smb.ID == ftp.ID {
			t.Error("different services share an ID")
		}
		if smb.HostID != ftp.HostID {
			t.Error("same address resolved to different hosts")
		}
	})

	t.Run("marks service complete", func(t *testing.T) {
		db := newTestDB(t)
		if _, err := db.CreateWorkspace("ws"); err != nil {
			t.Fatalf("CreateWorkspace() error = %v", err)
		}

		service, err := db.RegisterService("ws", "10.0.0.5", 445, model.KindSMB)
		if err != nil {
			t.Fatalf("RegisterService() error = %v", err)
		}

		if err := db.MarkServiceComplete(service.ID); err != nil {
			t.Fatalf("MarkServiceComplete() error = %v", err)
		}

		again, err := db.RegisterService("ws", "10.0.0.5", 445, model.KindSMB)
		if err != nil {
			t.Fatalf("RegisterService() after complete error = %v", err)
		}
		if !again.Complete {
			t.Error("service not marked complete on re-registration")
		}
	})

	t.Run("errors marking unknown service complete", func(t *testing.T) {
		db := newTestDB(t)

		if err := db.MarkServiceComplete("no-such-id"); err == nil {
			t.Error("MarkServiceComplete() expected error for unknown service, got nil")
		}
	})
}

func TestSQLiteDatabase_RegisterRules(t *testing.T) {
	db := newTestDB(t)

	rules := []*sfh.Rule{
		mustRule(t, model.SearchFileName, `.*\.kdbx`, model.TierHigh, model.TierHigh),
		mustRule(t, model.SearchFileContent, `BEGIN RSA PRIVATE KEY`, model.TierHigh, model.TierHigh),
	}

	if err := db.RegisterRules(rules); err != nil {
		t.Fatalf("RegisterRules() error = %v", err)
	}
	// Second registration must not create duplicates.
	if err := db.RegisterRules(rules); err != nil {
		t.Fatalf("RegisterRules() second call error = %v", err)
	}

	var count int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM match_rule`).Scan(&count); err != nil {
		t.Fatalf("counting rules: %v", err)
	}
	if count != 2 {
		t.Errorf("match_rule count = %d, want 2", count)
	}
}

func TestSQLiteDatabase_RecordFinding(t *testing.T) {
	t.Run("persists the full chain", func(t *testing.T) {
		db := newTestDB(t)
		if _, err := db.CreateWorkspace("ws"); err != nil {
			t.Fatalf("CreateWorkspace() error = %v", err)
		}

		rule := mustRule(t, model.SearchFileContent, `password\s*=`, model.TierMedium, model.TierMedium)
		content := []byte("password = hunter2\n")
		f := testFinding("ws", "10.0.0.5", "backups/app.config", content, rule)

		if err := db.RecordFinding(f); err != nil {
			t.Fatalf("RecordFinding() error = %v", err)
		}
		if f.File.ID == "" {
			t.Error("RecordFinding() did not set the stored file ID")
		}

		records, err := db.FlaggedFiles("ws")
		if err != nil {
			t.Fatalf("FlaggedFiles() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("FlaggedFiles() returned %d records, want 1", len(records))
		}
		rec := records[0]
		if rec.FullPath != "backups/app.config" {
			t.Errorf("FullPath = %q, want backups/app.config", rec.FullPath)
		}
		if rec.Share != "share" {
			t.Errorf("Share = %q, want share", rec.Share)
		}
		if rec.SHA256 != f.File.SHA256 {
			t.Errorf("SHA256 = %q, want %q", rec.SHA256, f.File.SHA256)
		}
		if rec.Review != model.ReviewTBD {
			t.Errorf("Review = %q, want %q", rec.Review, model.ReviewTBD)
		}
		if len(rec.Rules) != 1 || rec.Rules[0].Pattern != rule.Pattern {
			t.Errorf("Rules = %v, want one rule with pattern %q", rec.Rules, rule.Pattern)
		}

		stored, err := db.FileContent(rec.FileID)
		if err != nil {
			t.Fatalf("FileContent() error = %v", err)
		}
		if !bytes.Equal(stored, content) {
			t.Errorf("FileContent() = %q, want %q", stored, content)
		}
	})

	t.Run("links duplicate content to one stored file", func(t *testing.T) {
		db := newTestDB(t)
		if _, err := db.CreateWorkspace("ws"); err != nil {
			t.Fatalf("CreateWorkspace() error = %v", err)
		}

		rule := mustRule(t, model.SearchFileContent, `secret`, model.TierHigh, model.TierLow)
		content := []byte("secret token")

		first := testFinding("ws", "10.0.0.5", "dir-a/creds.txt", content, rule)
		if err := db.RecordFinding(first); err != nil {
			t.Fatalf("RecordFinding(first) error = %v", err)
		}

		// The analyzer looks up the digest and links the second path
		// against the already-stored file, carrying no new content.
		existing, err := db.FindFileByDigest("ws", sfh.Digest(content))
		if err != nil {
			t.Fatalf("FindFileByDigest() error = %v", err)
		}
		if existing == nil {
			t.Fatal("FindFileByDigest() returned nil for stored content")
		}

		second := testFinding("ws", "10.0.0.5", "dir-b/creds-copy.txt", nil, nil)
		second.File = existing
		if err := db.RecordFinding(second); err != nil {
			t.Fatalf("RecordFinding(second) error = %v", err)
		}

		var fileCount, pathCount int
		if err := db.db.QueryRow(`SELECT COUNT(*) FROM file`).Scan(&fileCount); err != nil {
			t.Fatalf("counting files: %v", err)
		}
		if err := db.db.QueryRow(`SELECT COUNT(*) FROM path`).Scan(&pathCount); err != nil {
			t.Fatalf("counting paths: %v", err)
		}
		if fileCount != 1 {
			t.Errorf("file count = %d, want 1", fileCount)
		}
		if pathCount != 2 {
			t.Errorf("path count = %d, want 2", pathCount)
		}
	})

	t.Run("is idempotent per path", func(t *testing.T) {
		db := newTestDB(t)
		if _, err := db.CreateWorkspace("ws"); err != nil {
			t.Fatalf("CreateWorkspace() error = %v", err)
		}

		rule := mustRule(t, model.SearchFileName, `\.env`, model.TierMedium, model.TierHigh)
		f := testFinding("ws", "10.0.0.5", "app/.env", []byte("DB_PASS=x"), rule)

		if err := db.RecordFinding(f); err != nil {
			t.Fatalf("RecordFinding() error = %v", err)
		}
		// Same finding again, as a re-scan with --reanalyze would produce.
		f2 := testFinding("ws", "10.0.0.5", "app/.env", []byte("DB_PASS=x"), rule)
		if err := db.RecordFinding(f2); err != nil {
			t.Fatalf("RecordFinding() repeat error = %v", err)
		}

		var pathCount int
		if err := db.db.QueryRow(`SELECT COUNT(*) FROM path`).Scan(&pathCount); err != nil {
			t.Fatalf("counting paths: %v", err)
		}
		if pathCount != 1 {
			t.Errorf("path count = %d, want 1", pathCount)
		}
	})

	t.Run("rolls back when workspace missing", func(t *testing.T) {
		db := newTestDB(t)

		rule := mustRule(t, model.SearchFileName, `\.env`, model.TierMedium, model.TierHigh)
		f := testFinding("nonexistent", "10.0.0.5", "app/.env", []byte("DB_PASS=x"), rule)

		if err := db.RecordFinding(f); err == nil {
			t.Error("RecordFinding() expected error for missing workspace, got nil")
		}

		var hostCount int
		if err := db.db.QueryRow(`SELECT COUNT(*) FROM host`).Scan(&hostCount); err != nil {
			t.Fatalf("counting hosts: %v", err)
		}
		if hostCount != 0 {
			t.Errorf("host count = %d after rollback, want 0", hostCount)
		}
	})

	t.Run("stores path timestamps", func(t *testing.T) {
		db := newTestDB(t)
		if _, err := db.CreateWorkspace("ws"); err != nil {
			t.Fatalf("CreateWorkspace() error = %v", err)
		}

		modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		rule := mustRule(t, model.SearchFileName, `\.env`, model.TierMedium, model.TierHigh)
		f := testFinding("ws", "10.0.0.5", "app/.env", []byte("DB_PASS=x"), rule)
		f.ModifiedTime = &modified

		if err := db.RecordFinding(f); err != nil {
			t.Fatalf("RecordFinding() error = %v", err)
		}

		records, err := db.FlaggedFiles("ws")
		if err != nil {
			t.Fatalf("FlaggedFiles() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("FlaggedFiles() returned %d records, want 1", len(records))
		}
		if records[0].ModifiedTime == nil || !records[0].ModifiedTime.Equal(modified) {
			t.Errorf("ModifiedTime = %v, want %v", records[0].ModifiedTime, modified)
		}
	})
}

// Analyzer workers call RecordFinding from separate goroutines. The
// read-then-write chain must survive that against a real database file,
// not just the in-memory store the other tests use.
func TestSQLiteDatabase_RecordFindingConcurrent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sfh.db")
	db, err := NewSQLiteDatabase(dbPath, nil, nil)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.db.Exec(Schema); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.CreateWorkspace("ws"); err != nil {
		t.Fatalf("CreateWorkspace() error = %v", err)
	}
	rule := mustRule(t, model.SearchFileContent, "password", model.TierMedium, model.TierMedium)

	const workers = 4
	const perWorker = 25

	errs := make(chan error, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				content := []byte(fmt.Sprintf("password=worker-%d-entry-%d", w, i))
				path := fmt.Sprintf("etc/app-%d/conf-%d.ini", w, i)
				if err := db.RecordFinding(testFinding("ws", "10.0.0.5", path, content, rule)); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("RecordFinding() error = %v", err)
	}

	records, err := db.FlaggedFiles("ws")
	if err != nil {
		t.Fatalf("FlaggedFiles() error = %v", err)
	}
	if len(records) != workers*perWorker {
		t.Errorf("FlaggedFiles() returned %d records, want %d", len(records), workers*perWorker)
	}
}

func TestSQLiteDatabase_UpdateReview(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.CreateWorkspace("ws"); err != nil {
		t.Fatalf("CreateWorkspace() error = %v", err)
	}

	rule := mustRule(t, model.SearchFileContent, `secret`, model.TierHigh, model.TierLow)
	f := testFinding("ws", "10.0.0.5", "notes.txt", []byte("secret"), rule)
	if err := db.RecordFinding(f); err != nil {
		t.Fatalf("RecordFinding() error = %v", err)
	}

	if err := db.UpdateReview(f.File.ID, model.ReviewRelevant, "prod credentials"); err != nil {
		t.Fatalf("UpdateReview() error = %v", err)
	}

	records, err := db.FlaggedFiles("ws")
	if err != nil {
		t.Fatalf("FlaggedFiles() error = %v", err)
	}
	if records[0].Review != model.ReviewRelevant {
		t.Errorf("Review = %q, want %q", records[0].Review, model.ReviewRelevant)
	}
	if records[0].Comment != "prod credentials" {
		t.Errorf("Comment = %q, want %q", records[0].Comment, "prod credentials")
	}

	if err := db.UpdateReview("no-such-id", model.ReviewIrrelevant, ""); err == nil {
		t.Error("UpdateReview() expected error for unknown file, got nil")
	}
}

func TestSQLiteDatabase_ScanLogs(t *testing.T) {
	db := newTestDB(t)

	log, err := db.CreateScanLog("smb", "-w ws -t 10.0.0.5")
	if err != nil {
		t.Fatalf("CreateScanLog() error = %v", err)
	}
	if log.ID == 0 {
		t.Error("scan log ID is zero")
	}
	if log.Status != "running" {
		t.Errorf("Status = %q, want running", log.Status)
	}

	if err := db.FinishScanLog(log.ID, "success"); err != nil {
		t.Fatalf("FinishScanLog() error = %v", err)
	}

	logs, err := db.ListScanLogs(10)
	if err != nil {
		t.Fatalf("ListScanLogs() error = %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("ListScanLogs() returned %d logs, want 1", len(logs))
	}
	if logs[0].Status != "success" {
		t.Errorf("Status = %q, want success", logs[0].Status)
	}
	if logs[0].FinishedAt == nil {
		t.Error("FinishedAt is nil after FinishScanLog")
	}
}
