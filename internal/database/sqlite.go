package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sfh-go/internal/database/migrations"
	"sfh-go/internal/model"
	"sfh-go/internal/sfh"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock sfh.Clock
	idGen sfh.IDGenerator
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for an in-memory database.
// clock and idGen may be nil, in which case real implementations are used.
func NewSQLiteDatabase(path string, clock sfh.Clock, idGen sfh.IDGenerator) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteDatabaseFromDB(db, path, clock, idGen), nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, path string, clock sfh.Clock, idGen sfh.IDGenerator) *SQLiteDatabase {
	if clock == nil {
		clock = sfh.RealClock{}
	}
	if idGen == nil {
		idGen = sfh.UUIDGenerator{}
	}
	return &SQLiteDatabase{
		db:    db,
		path:  path,
		clock: clock,
		idGen: idGen,
	}
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the rest of the package relies on. Exported for tools and tests that need
// a properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes the analyzer workers' read-then-write
	// transactions at the pool instead of tripping SQLite's lock-upgrade
	// deadlock. It also keeps ":memory:" coherent: every pooled
	// connection would otherwise open its own empty in-memory database.
	db.SetMaxOpenConns(1)

	// Foreign key enforcement is OFF by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Other processes (a second sfh invocation, db backup) may hold the
	// file; wait for their locks instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	return db, nil
}

// Workspace operations

func (s *SQLiteDatabase) FindWorkspaceByName(name string) (*model.Workspace, error) {
	row := s.db.QueryRow(`SELECT id, name, created_at FROM workspace WHERE name = ?`, name)
	var ws model.Workspace
	if err := row.Scan(&ws.ID, &ws.Name, &ws.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding workspace by name: %w", err)
	}
	return &ws, nil
}

func (s *SQLiteDatabase) CreateWorkspace(name string) (*model.Workspace, error) {
	ws := &model.Workspace{
		ID:        s.idGen.New(),
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	_, err := s.db.Exec(`INSERT INTO workspace (id, name, created_at) VALUES (?, ?, ?)`,
		ws.ID, ws.Name, ws.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return ws, nil
}

func (s *SQLiteDatabase) ListWorkspaces() ([]*model.Workspace, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM workspace ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	var result []*model.Workspace
	for rows.Next() {
		var ws model.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		result = append(result, &ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	return result, nil
}

// Service operations

func (s *SQLiteDatabase) RegisterService(workspace string, address string, port int64, kind model.ServiceKind) (*model.Service, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	ws, err := workspaceByNameTx(tx, workspace)
	if err != nil {
		return nil, err
	}
	host, err := s.hostGetOrCreateTx(tx, ws.ID, address)
	if err != nil {
		return nil, err
	}
	service, err := s.serviceGetOrCreateTx(tx, host.ID, kind, port)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return service, nil
}

func (s *SQLiteDatabase) MarkServiceComplete(serviceID string) error {
	res, err := s.db.Exec(`UPDATE service SET complete = TRUE WHERE id = ?`, serviceID)
	if err != nil {
		return fmt.Errorf("marking service complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking service complete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("marking service complete: no service with id %s", serviceID)
	}
	return nil
}

// Rule operations

func (s *SQLiteDatabase) RegisterRules(rules []*sfh.Rule) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rule := range rules {
		if _, err := s.ruleGetOrCreateTx(tx, rule); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// File operations

func (s *SQLiteDatabase) FindFileByDigest(workspace string, digest string) (*model.StoredFile, error) {
	row := s.db.QueryRow(`
		SELECT f.id, f.workspace_id, f.size_bytes, f.sha256, f.file_type, f.mime_type, f.review, f.comment, f.created_at
		FROM file f
		JOIN workspace w ON w.id = f.workspace_id
		WHERE w.name = ? AND f.sha256 = ?`, workspace, digest)

	var f model.StoredFile
	err := row.Scan(&f.ID, &f.WorkspaceID, &f.SizeBytes, &f.SHA256, &f.FileType, &f.MimeType, &f.Review, &f.Comment, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file by digest: %w", err)
	}
	return &f, nil
}

// RecordFinding atomically persists one finding in a single transaction:
//  1. Resolves the workspace (it must already exist).
//  2. Gets or creates the host and service rows for the finding's target.
//  3. Gets or creates the stored file. A finding whose file already has an
//     ID links the new path to that existing row and stores no content.
//  4. Links the matched rule to the file, if the finding carries one.
//  5. Gets or creates the path row pointing at the file.
func (s *SQLiteDatabase) RecordFinding(f *sfh.Finding) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	ws, err := workspaceByNameTx(tx, f.Target.Workspace)
	if err != nil {
		return err
	}
	host, err := s.hostGetOrCreateTx(tx, ws.ID, f.Target.Address)
	if err != nil {
		return err
	}
	service, err := s.serviceGetOrCreateTx(tx, host.ID, f.Target.Kind, f.Target.Port)
	if err != nil {
		return err
	}

	fileID := f.File.ID
	if fileID == "" {
		fileID, err = s.fileGetOrCreateTx(tx, ws.ID, f.File)
		if err != nil {
			return err
		}
		f.File.ID = fileID
	}

	if f.Rule != nil {
		ruleID, err := s.ruleGetOrCreateTx(tx, f.Rule)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO file_match_rule (file_id, match_rule_id, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT (file_id, match_rule_id) DO NOTHING`,
			fileID, ruleID, s.clock.Now())
		if err != nil {
			return fmt.Errorf("linking rule to file: %w", err)
		}
	}

	if err := s.pathGetOrCreateTx(tx, service.ID, fileID, f); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FlaggedFiles(workspace string) ([]*sfh.FileRecord, error) {
	rows, err := s.db.Query(`
		SELECT f.id, w.name, h.address, sv.kind, sv.port,
		       p.share, p.full_path, p.file_name, p.extension,
		       f.size_bytes, f.sha256, f.file_type, f.mime_type, f.review, f.comment,
		       p.modified_time
		FROM path p
		JOIN file f ON f.id = p.file_id
		JOIN service sv ON sv.id = p.service_id
		JOIN host h ON h.id = sv.host_id
		JOIN workspace w ON w.id = h.workspace_id
		WHERE w.name = ?
		ORDER BY h.address, p.share, p.full_path`, workspace)
	if err != nil {
		return nil, fmt.Errorf("listing flagged files: %w", err)
	}
	defer rows.Close()

	var result []*sfh.FileRecord
	for rows.Next() {
		var rec sfh.FileRecord
		var modified sql.NullTime
		err := rows.Scan(&rec.FileID, &rec.Workspace, &rec.Address, &rec.Kind, &rec.Port,
			&rec.Share, &rec.FullPath, &rec.FileName, &rec.Extension,
			&rec.SizeBytes, &rec.SHA256, &rec.FileType, &rec.MimeType, &rec.Review, &rec.Comment,
			&modified)
		if err != nil {
			return nil, fmt.Errorf("scanning flagged file: %w", err)
		}
		if modified.Valid {
			t := modified.Time
			rec.ModifiedTime = &t
		}
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing flagged files: %w", err)
	}

	for _, rec := range result {
		rules, err := s.rulesForFile(rec.FileID)
		if err != nil {
			return nil, err
		}
		rec.Rules = rules
	}
	return result, nil
}

func (s *SQLiteDatabase) rulesForFile(fileID string) ([]*model.MatchRule, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.search_location, r.search_pattern, r.category, r.relevance, r.accuracy, r.created_at
		FROM match_rule r
		JOIN file_match_rule fmr ON fmr.match_rule_id = r.id
		WHERE fmr.file_id = ?
		ORDER BY r.search_location, r.search_pattern`, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing rules for file: %w", err)
	}
	defer rows.Close()

	var result []*model.MatchRule
	for rows.Next() {
		var r model.MatchRule
		if err := rows.Scan(&r.ID, &r.Location, &r.Pattern, &r.Category, &r.Relevance, &r.Accuracy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing rules for file: %w", err)
	}
	return result, nil
}

func (s *SQLiteDatabase) FileContent(fileID string) ([]byte, error) {
	row := s.db.QueryRow(`SELECT content FROM file WHERE id = ?`, fileID)
	var content []byte
	if err := row.Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no file with id %s", fileID)
		}
		return nil, fmt.Errorf("loading file content: %w", err)
	}
	return content, nil
}

func (s *SQLiteDatabase) UpdateReview(fileID string, review model.ReviewResult, comment string) error {
	res, err := s.db.Exec(`UPDATE file SET review = ?, comment = ? WHERE id = ?`,
		review, comment, fileID)
	if err != nil {
		return fmt.Errorf("updating review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating review: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("updating review: no file with id %s", fileID)
	}
	return nil
}

// Scan operation tracking

func (s *SQLiteDatabase) CreateScanLog(operation, parameters string) (*model.ScanLog, error) {
	log := &model.ScanLog{
		StartedAt:  s.clock.Now(),
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
	}
	res, err := s.db.Exec(`
		INSERT INTO scan_log (started_at, operation, parameters, status)
		VALUES (?, ?, ?, ?)`,
		log.StartedAt, log.Operation, log.Parameters, log.Status)
	if err != nil {
		return nil, fmt.Errorf("creating scan log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating scan log: %w", err)
	}
	log.ID = id
	return log, nil
}

func (s *SQLiteDatabase) FinishScanLog(id int64, status string) error {
	_, err := s.db.Exec(`UPDATE scan_log SET finished_at = ?, status = ? WHERE id = ?`,
		s.clock.Now(), status, id)
	if err != nil {
		return fmt.Errorf("finishing scan log: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListScanLogs(limit int) ([]*model.ScanLog, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, operation, parameters, status
		FROM scan_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan logs: %w", err)
	}
	defer rows.Close()

	var result []*model.ScanLog
	for rows.Next() {
		var log model.ScanLog
		var finished sql.NullTime
		if err := rows.Scan(&log.ID, &log.StartedAt, &finished, &log.Operation, &log.Parameters, &log.Status); err != nil {
			return nil, fmt.Errorf("scanning scan log: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			log.FinishedAt = &t
		}
		result = append(result, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing scan logs: %w", err)
	}
	return result, nil
}

// Get-or-create helpers. All run inside the caller's transaction and use
// the select-then-insert pattern; the transaction serializes concurrent
// writers so the lost-update race does not arise.

func workspaceByNameTx(tx *sql.Tx, name string) (*model.Workspace, error) {
	row := tx.QueryRow(`SELECT id, name, created_at FROM workspace WHERE name = ?`, name)
	var ws model.Workspace
	if err := row.Scan(&ws.ID, &ws.Name, &ws.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("workspace %q does not exist", name)
		}
		return nil, fmt.Errorf("finding workspace: %w", err)
	}
	return &ws, nil
}

func (s *SQLiteDatabase) hostGetOrCreateTx(tx *sql.Tx, workspaceID, address string) (*model.Host, error) {
	row := tx.QueryRow(`SELECT id, workspace_id, address, created_at FROM host WHERE workspace_id = ? AND address = ?`,
		workspaceID, address)
	var host model.Host
	err := row.Scan(&host.ID, &host.WorkspaceID, &host.Address, &host.CreatedAt)
	if err == nil {
		return &host, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finding host: %w", err)
	}

	host = model.Host{
		ID:          s.idGen.New(),
		WorkspaceID: workspaceID,
		Address:     address,
		CreatedAt:   s.clock.Now(),
	}
	_, err = tx.Exec(`INSERT INTO host (id, workspace_id, address, created_at) VALUES (?, ?, ?, ?)`,
		host.ID, host.WorkspaceID, host.Address, host.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating host: %w", err)
	}
	return &host, nil
}

func (s *SQLiteDatabase) serviceGetOrCreateTx(tx *sql.Tx, hostID string, kind model.ServiceKind, port int64) (*model.Service, error) {
	row := tx.QueryRow(`SELECT id, host_id, kind, port, complete, created_at FROM service WHERE host_id = ? AND kind = ? AND port = ?`,
		hostID, kind, port)
	var service model.Service
	err := row.Scan(&service.ID, &service.HostID, &service.Kind, &service.Port, &service.Complete, &service.CreatedAt)
	if err == nil {
		return &service, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finding service: %w", err)
	}

	service = model.Service{
		ID:        s.idGen.New(),
		HostID:    hostID,
		Kind:      kind,
		Port:      port,
		Complete:  false,
		CreatedAt: s.clock.Now(),
	}
	_, err = tx.Exec(`INSERT INTO service (id, host_id, kind, port, complete, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		service.ID, service.HostID, service.Kind, service.Port, service.Complete, service.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating service: %w", err)
	}
	return &service, nil
}

func (s *SQLiteDatabase) ruleGetOrCreateTx(tx *sql.Tx, rule *sfh.Rule) (string, error) {
	row := tx.QueryRow(`SELECT id FROM match_rule WHERE search_location = ? AND search_pattern = ?`,
		rule.Location, rule.Pattern)
	var id string
	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("finding rule: %w", err)
	}

	id = s.idGen.New()
	_, err = tx.Exec(`
		INSERT INTO match_rule (id, search_location, search_pattern, category, relevance, accuracy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rule.Location, rule.Pattern, rule.Category, rule.Relevance, rule.Accuracy, s.clock.Now())
	if err != nil {
		return "", fmt.Errorf("creating rule: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) fileGetOrCreateTx(tx *sql.Tx, workspaceID string, file *model.StoredFile) (string, error) {
	row := tx.QueryRow(`SELECT id FROM file WHERE workspace_id = ? AND sha256 = ?`, workspaceID, file.SHA256)
	var id string
	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("finding file: %w", err)
	}

	id = s.idGen.New()
	_, err = tx.Exec(`
		INSERT INTO file (id, workspace_id, content, size_bytes, sha256, file_type, mime_type, review, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, workspaceID, file.Content, file.SizeBytes, file.SHA256, file.FileType, file.MimeType, file.Review, file.Comment, s.clock.Now())
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) pathGetOrCreateTx(tx *sql.Tx, serviceID, fileID string, f *sfh.Finding) error {
	row := tx.QueryRow(`SELECT id FROM path WHERE service_id = ? AND share = ? AND full_path = ?`,
		serviceID, f.Share, f.FullPath)
	var id string
	err := row.Scan(&id)
	if err == nil {
		return nil // Path already recorded
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("finding path: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO path (id, service_id, file_id, share, full_path, file_name, extension,
		                  access_time, modified_time, creation_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.idGen.New(), serviceID, fileID, f.Share, f.FullPath, f.FileName, f.Extension,
		nullTime(f.AccessTime), nullTime(f.ModifiedTime), nullTime(f.CreationTime), s.clock.Now())
	if err != nil {
		return fmt.Errorf("creating path: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements the sfh.Database interface
var _ sfh.Database = (*SQLiteDatabase)(nil)
