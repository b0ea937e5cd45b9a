package model

import "time"

// ServiceKind identifies the protocol a service was scanned over.
type ServiceKind string

const (
	KindSMB   ServiceKind = "smb"
	KindFTP   ServiceKind = "ftp"
	KindNFS   ServiceKind = "nfs"
	KindLocal ServiceKind = "local"
	KindGit   ServiceKind = "git"
)

// SearchLocation identifies which part of a discovered entry a match
// rule inspects.
type SearchLocation string

const (
	SearchFileName    SearchLocation = "file_name"
	SearchFullPath    SearchLocation = "full_path"
	SearchFileContent SearchLocation = "file_content"
)

// Weight returns the location's contribution to rule priority.
// Content evidence outranks path evidence, which outranks name evidence.
func (l SearchLocation) Weight() int {
	switch l {
	case SearchFileContent:
		return 10000
	case SearchFullPath:
		return 1000
	case SearchFileName:
		return 1
	}
	return 0
}

// Tier is an ordinal classification used for both rule relevance (how
// likely a match indicates a sensitive file) and rule accuracy (how
// precisely the pattern identifies it).
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// RelevanceWeight returns the tier's contribution to rule priority
// when used as a relevance classification.
func (t Tier) RelevanceWeight() int {
	switch t {
	case TierHigh:
		return 20000
	case TierMedium:
		return 2000
	case TierLow:
		return 200
	}
	return 0
}

// AccuracyWeight returns the tier's contribution to rule priority when
// used as an accuracy classification.
func (t Tier) AccuracyWeight() int {
	switch t {
	case TierHigh:
		return 10000
	case TierMedium:
		return 1000
	case TierLow:
		return 100
	}
	return 0
}

// ReviewResult is the manual review state of a stored file.
type ReviewResult string

const (
	ReviewTBD        ReviewResult = "tbd"
	ReviewRelevant   ReviewResult = "relevant"
	ReviewIrrelevant ReviewResult = "irrelevant"
)

// Workspace isolates all scan data for one engagement.
type Workspace struct {
	ID        string // UUID
	Name      string // Unique
	CreatedAt time.Time
}

// Host is a network address within a workspace.
type Host struct {
	ID          string // UUID
	WorkspaceID string // Foreign key to Workspace
	Address     string // Unique per workspace
	CreatedAt   time.Time
}

// Service is one scan target on a host. Complete flips to true after a
// full successful pass and makes later runs skip the service.
type Service struct {
	ID        string // UUID
	HostID    string // Foreign key to Host
	Kind      ServiceKind
	Port      int64 // 0 when the protocol has no port (local, git)
	Complete  bool
	CreatedAt time.Time
}

// StoredFile is content-addressed file data. The digest is the hex
// SHA-256 of the content; at most one row exists per (workspace, digest).
// For files above the import threshold the content is a short
// human-readable placeholder and SizeBytes records the true size.
type StoredFile struct {
	ID          string // UUID
	WorkspaceID string // Foreign key to Workspace
	Content     []byte
	SizeBytes   int64
	SHA256      string // Hex digest, dedup key within the workspace
	FileType    string // Detected type description
	MimeType    string
	Review      ReviewResult
	Comment     string
	CreatedAt   time.Time
}

// Path is one location a stored file was discovered at. Several paths
// may reference the same stored file.
type Path struct {
	ID           string // UUID
	ServiceID    string // Foreign key to Service
	FileID       string // Foreign key to StoredFile
	Share        string // SMB share or NFS export; empty otherwise
	FullPath     string // Normalized with forward slashes
	FileName     string
	Extension    string // Lowercase, without the leading dot
	AccessTime   *time.Time
	ModifiedTime *time.Time
	CreationTime *time.Time
	CreatedAt    time.Time
}

// MatchRule is the persisted form of a matching rule, recorded so that
// flagged files can be traced back to the rule(s) that flagged them.
// Unique per (search location, pattern).
type MatchRule struct {
	ID        string // UUID
	Location  SearchLocation
	Pattern   string
	Category  string
	Relevance Tier
	Accuracy  Tier
	CreatedAt time.Time
}

// ScanLog records one CLI scan invocation.
type ScanLog struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Operation  string
	Parameters string
	Status     string // "running", "success" or "error"
}
