package sfh

import (
	"time"

	"sfh-go/internal/model"
)

// Finding is one analyzer decision to persist: a path plus either the
// rule that flagged it (File carries new content) or a link to an
// already-stored file (Rule nil, dedup path). The persistence layer
// runs the whole workspace→host→service→rule→file→path get-or-create
// chain for one finding inside a single transaction.
type Finding struct {
	Target       Target
	Share        string
	FullPath     string
	FileName     string
	Extension    string
	AccessTime   *time.Time
	ModifiedTime *time.Time
	CreationTime *time.Time

	File *model.StoredFile
	Rule *Rule
}

// FileRecord is a flattened view of one path and its stored file,
// used by the review console and the report generator.
type FileRecord struct {
	FileID       string
	Workspace    string
	Address      string
	Kind         model.ServiceKind
	Port         int64
	Share        string
	FullPath     string
	FileName     string
	Extension    string
	SizeBytes    int64
	SHA256       string
	FileType     string
	MimeType     string
	Review       model.ReviewResult
	Comment      string
	Rules        []*model.MatchRule
	ModifiedTime *time.Time
}

// Database provides the persistence contract for the scan pipeline.
// All get-or-create style methods are idempotent and safe to call
// repeatedly with identical arguments.
type Database interface {
	// Workspace operations. Workspaces are never auto-created by the
	// pipeline; FindWorkspaceByName returns nil when missing.
	FindWorkspaceByName(name string) (*model.Workspace, error)
	CreateWorkspace(name string) (*model.Workspace, error)
	ListWorkspaces() ([]*model.Workspace, error)

	// RegisterService gets or creates the host and service rows for a
	// scan target and returns the service, including its completion
	// flag.
	RegisterService(workspace string, address string, port int64, kind model.ServiceKind) (*model.Service, error)

	// MarkServiceComplete records a full successful pass over a service.
	MarkServiceComplete(serviceID string) error

	// RegisterRules upserts the configured match rules.
	RegisterRules(rules []*Rule) error

	// FindFileByDigest returns the stored file with the given hex
	// SHA-256 digest within a workspace, or nil. Content is not loaded.
	FindFileByDigest(workspace string, digest string) (*model.StoredFile, error)

	// RecordFinding atomically persists one finding. A failed chain is
	// rolled back as a whole.
	RecordFinding(f *Finding) error

	// FlaggedFiles returns one record per persisted path in the
	// workspace, with the rules that flagged the file.
	FlaggedFiles(workspace string) ([]*FileRecord, error)

	// FileContent returns the stored content of a file.
	FileContent(fileID string) ([]byte, error)

	// UpdateReview sets the review state and comment of a stored file.
	UpdateReview(fileID string, review model.ReviewResult, comment string) error

	// Scan operation tracking.
	CreateScanLog(operation, parameters string) (*model.ScanLog, error)
	FinishScanLog(id int64, status string) error
	ListScanLogs(limit int) ([]*model.ScanLog, error)

	// CheckMigrations verifies the schema is up-to-date.
	CheckMigrations() error

	// BackupTo writes a complete copy of the database to destPath.
	BackupTo(destPath string) error

	// Close closes the database connection.
	Close() error
}
