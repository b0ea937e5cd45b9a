package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"sfh-go/internal/config"
	"sfh-go/internal/database"
	"sfh-go/internal/encryption"
	"sfh-go/internal/hunters"
	"sfh-go/internal/model"
	"sfh-go/internal/report"
	"sfh-go/internal/review"
	"sfh-go/internal/scratch"
	"sfh-go/internal/sfh"
	"sfh-go/internal/vault"
)

// SFHApp is the application layer between the CLI and the hunt
// pipeline. It constructs all dependencies from config, exposes
// high-level operations that accept raw CLI arguments, and manages the
// DB and scan-log lifecycle on Close.
type SFHApp struct {
	cfg     *config.Config
	db      sfh.Database
	scratch sfh.Scratch
	rules   *sfh.RuleSet
	limits  sfh.Limits
	service *sfh.HuntService
	logger  sfh.Logger
	op      *ScanOperation
	logFile *os.File
}

// NewSFHApp creates a fully wired SFHApp from the given config.
// operation identifies the CLI command being run (e.g. "smb", "report")
// and parameters its argument summary for the scan log. extraRules are
// appended to the rules file's rules (domain/UPN rules built from CLI
// flags). The caller must call Close when done.
func NewSFHApp(cfg *config.Config, operation, parameters string, extraRules []*sfh.Rule, debug bool) (*SFHApp, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	rf, err := loadRulesFile(cfg.RulesPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	rules, err := buildRules(rf)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("compiling rules: %w", err)
	}
	rules = append(rules, extraRules...)

	limits := sfh.Limits{
		FileSizeThreshold:    rf.MaxFileSizeBytes,
		ArchiveSizeThreshold: rf.MaxArchiveSizeBytes,
		ArchiveExtensions:    rf.SupportedArchives,
	}

	sc, err := scratch.NewScratchFromConfig(cfg.Scratch)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating scratch area: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, debug)
	if err != nil {
		sc.Cleanup()
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	ruleSet := sfh.NewRuleSet(rules)
	expander := sfh.NewArchiveExpander(limits, logger)
	svc := sfh.NewHuntService(db, ruleSet, expander, logger, cfg.Threads, cfg.QueueSize)

	return &SFHApp{
		cfg:     cfg,
		db:      db,
		scratch: sc,
		rules:   ruleSet,
		limits:  limits,
		service: svc,
		logger:  logger,
		op:      NewScanOperation(operation, parameters),
		logFile: logFile,
	}, nil
}

// loadRulesFile reads the configured rules file, falling back to the
// embedded defaults when none has been written yet.
func loadRulesFile(path string) (*config.RulesFile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultRulesFile()
	}
	rf, err := config.LoadRulesFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	return rf, nil
}

// persistOperation saves the scan operation to the database, giving it
// an auto-increment ID. This should only be called for DB-mutating
// commands.
func (a *SFHApp) persistOperation() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	log, err := a.db.CreateScanLog(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting scan operation: %w", err)
	}
	a.op.ID = log.ID
	return nil
}

// Fail marks the operation as failed for the scan log.
func (a *SFHApp) Fail() { a.op.Status = "error" }

// Logger exposes the operation logger for the CLI layer.
func (a *SFHApp) Logger() sfh.Logger { return a.logger }

// EnsureWorkspace returns the named workspace, creating it when create
// is set.
func (a *SFHApp) EnsureWorkspace(name string, create bool) (*model.Workspace, error) {
	ws, err := a.db.FindWorkspaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("looking up workspace: %w", err)
	}
	if ws != nil {
		return ws, nil
	}
	if !create {
		return nil, fmt.Errorf("workspace %q does not exist (use workspace add, or --ignore to auto-create)", name)
	}
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	return a.db.CreateWorkspace(name)
}

// CreateWorkspace registers a new workspace.
func (a *SFHApp) CreateWorkspace(name string) (*model.Workspace, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	return a.db.CreateWorkspace(name)
}

// ListWorkspaces returns all workspaces.
func (a *SFHApp) ListWorkspaces() ([]*model.Workspace, error) {
	return a.db.ListWorkspaces()
}

// Scan builds the hunter for the given kind and runs a full service
// scan.
func (a *SFHApp) Scan(ctx context.Context, kind model.ServiceKind, opts hunters.Options, reanalyze bool) (*sfh.HuntStats, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	hunter, err := hunters.New(kind, opts, a.limits, a.scratch, a.logger)
	if err != nil {
		return nil, fmt.Errorf("creating %s hunter: %w", kind, err)
	}
	return a.service.Run(ctx, hunter, reanalyze)
}

// ListShares connects to an SMB service and lists its share names
// without scanning anything.
func (a *SFHApp) ListShares(ctx context.Context, opts hunters.Options) ([]string, error) {
	h := hunters.NewSMBHunter(opts.Workspace, opts.Address, opts.Port, opts.Username, opts.Password, opts.Domain, nil, a.scratch, a.limits, a.logger)
	return h.ListShares(ctx)
}

// Review starts the interactive review console for a workspace.
func (a *SFHApp) Review(workspace string) error {
	return review.NewConsole(a.db, workspace, a.logger).Run()
}

// WriteReport renders the workspace's flagged files to local files.
// Empty paths skip the respective format.
func (a *SFHApp) WriteReport(workspace, csvPath, excelPath string) error {
	records, err := a.db.FlaggedFiles(workspace)
	if err != nil {
		return fmt.Errorf("loading flagged files: %w", err)
	}

	if csvPath != "" {
		if err := writeReportFile(csvPath, records, report.WriteCSV); err != nil {
			return err
		}
		a.logger.Info("wrote CSV report", "path", csvPath, "rows", len(records))
	}
	if excelPath != "" {
		if err := writeReportFile(excelPath, records, report.WriteExcel); err != nil {
			return err
		}
		a.logger.Info("wrote Excel report", "path", excelPath, "rows", len(records))
	}
	return nil
}

func writeReportFile(path string, records []*sfh.FileRecord, render func(w io.Writer, records []*sfh.FileRecord) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := render(f, records); err != nil {
		f.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return f.Close()
}

// ExportBundle uploads the workspace's report bundle to the named
// vault (the first configured vault when name is empty). Returns the
// number of content objects uploaded.
func (a *SFHApp) ExportBundle(workspace, vaultName string, includeContent, encrypt bool) (int, error) {
	vcfg, err := a.findVaultConfig(vaultName)
	if err != nil {
		return 0, err
	}
	v, err := vault.NewVaultFromConfig(*vcfg)
	if err != nil {
		return 0, fmt.Errorf("creating vault: %w", err)
	}

	var enc sfh.Encryptor
	if encrypt {
		enc, err = encryption.NewEncryptorFromConfig(a.cfg.Encryption)
		if err != nil {
			return 0, fmt.Errorf("creating encryptor: %w", err)
		}
	}

	return report.NewExporter(a.db, v, enc, a.logger).Export(workspace, includeContent)
}

func (a *SFHApp) findVaultConfig(name string) (*config.VaultConfig, error) {
	if len(a.cfg.Vaults) == 0 {
		return nil, fmt.Errorf("no vaults configured")
	}
	if name == "" {
		return &a.cfg.Vaults[0], nil
	}
	for i := range a.cfg.Vaults {
		if a.cfg.Vaults[i].Name == name {
			return &a.cfg.Vaults[i], nil
		}
	}
	return nil, fmt.Errorf("no vault named %q configured", name)
}

// SetupEncryption generates the age key pair used for encrypted
// exports.
func (a *SFHApp) SetupEncryption(passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	return enc.Setup(passphrase)
}

// BackupDatabase writes a complete copy of the scan database to the
// given path.
func (a *SFHApp) BackupDatabase(destPath string) error {
	return a.db.BackupTo(destPath)
}

// History returns the most recent scan log entries.
func (a *SFHApp) History(limit int) ([]*model.ScanLog, error) {
	return a.db.ListScanLogs(limit)
}

// Close finalizes the scan log entry, removes the scratch area and
// closes all resources.
func (a *SFHApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishScanLog(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing scan log: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.scratch != nil {
		if err := a.scratch.Cleanup(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cleaning scratch area: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
