package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sfh-go/internal/app"
	"sfh-go/internal/config"
	"sfh-go/internal/database"
	"sfh-go/internal/database/migrations"
	"sfh-go/internal/sfh"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an SFHApp. The caller must defer
// app.Close(). operation identifies the CLI command being run (e.g.
// "smb", "report"); extraRules are appended to the configured rules.
func newApp(operation string, extraRules []*sfh.Rule) (*app.SFHApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if threads > 0 {
		cfg.Threads = threads
	}

	parameters := strings.Join(os.Args[1:], " ")
	a, err := app.NewSFHApp(cfg, operation, parameters, extraRules, debug)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// Persistent flags shared by every command.
var (
	threads int
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "sfh",
	Short: "Hunt for sensitive files on SMB, FTP, NFS, git and local filesystems",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Rules:    %s\n", cfg.RulesPath)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Rules:     %s\n", cfg.RulesPath)
		fmt.Printf("Threads:   %d\n", cfg.Threads)
		fmt.Printf("Database:  %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:     %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configEncryptionInitCmd = &cobra.Command{
	Use:   "encryption-init",
	Short: "Generate the age key pair for encrypted exports",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := promptSecret("Passphrase for the private key: ")
		if err != nil {
			return err
		}

		a, err := newApp("encryption-init", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetupEncryption(passphrase); err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		fmt.Println("Key pair generated.")
		return nil
	},
}

// workspace command
var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage workspaces",
}

var workspaceAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("workspace-add", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.CreateWorkspace(args[0])
		if err != nil {
			a.Fail()
			return fmt.Errorf("creating workspace: %w", err)
		}
		fmt.Printf("Created workspace %s (%s)\n", ws.Name, ws.ID)
		return nil
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("workspace-list", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		workspaces, err := a.ListWorkspaces()
		if err != nil {
			return err
		}
		if len(workspaces) == 0 {
			fmt.Println("No workspaces.")
			return nil
		}
		for _, ws := range workspaces {
			fmt.Printf("%s  %s  %s\n", ws.ID, ws.CreatedAt.Format("2006-01-02 15:04:05"), ws.Name)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the scan database",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and apply schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if cfg.Database.Type != "sqlite" {
			return fmt.Errorf("db init only applies to sqlite databases (configured type: %s)", cfg.Database.Type)
		}
		if err := os.MkdirAll(cfg.Database.DataDir, 0o700); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		dbPath := filepath.Join(cfg.Database.DataDir, "sfh.db")
		conn, err := database.OpenConnection(dbPath)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := migrations.MigrateUp(conn); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		fmt.Printf("Database ready at %s\n", dbPath)
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a copy of the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("db-backup", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return fmt.Errorf("backing up database: %w", err)
		}
		fmt.Printf("Database backed up to %s\n", args[0])
		return nil
	},
}

var dbLogCmd = &cobra.Command{
	Use:   "log",
	Short: "View scan operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("db-log", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		logs, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			fmt.Println("No scan operations recorded.")
			return nil
		}
		for _, l := range logs {
			duration := ""
			if l.FinishedAt != nil {
				duration = l.FinishedAt.Sub(l.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-12s  %s  %-8s  %s  %s\n",
				l.ID,
				l.Operation,
				l.StartedAt.Format("2006-01-02 15:04:05"),
				l.Status,
				duration,
				l.Parameters,
			)
		}
		return nil
	},
}

// review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review flagged files interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("review", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.EnsureWorkspace(workspace, false); err != nil {
			return err
		}
		return a.Review(workspace)
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate reports and export bundles",
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath, _ := cmd.Flags().GetString("csv")
		excelPath, _ := cmd.Flags().GetString("excel")
		export, _ := cmd.Flags().GetBool("export")
		vaultName, _ := cmd.Flags().GetString("vault")
		withContent, _ := cmd.Flags().GetBool("content")
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		if csvPath == "" && excelPath == "" && !export {
			return fmt.Errorf("nothing to do: pass --csv, --excel or --export")
		}

		a, err := newApp("report", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.EnsureWorkspace(workspace, false); err != nil {
			return err
		}

		if err := a.WriteReport(workspace, csvPath, excelPath); err != nil {
			return err
		}
		if export {
			uploaded, err := a.ExportBundle(workspace, vaultName, withContent, encrypt)
			if err != nil {
				return fmt.Errorf("exporting bundle: %w", err)
			}
			fmt.Printf("Exported bundle with %d content object(s)\n", uploaded)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&threads, "threads", "t", 0, "Analyzer pool size (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configEncryptionInitCmd)
	rootCmd.AddCommand(configCmd)

	workspaceCmd.AddCommand(workspaceAddCmd)
	workspaceCmd.AddCommand(workspaceListCmd)
	rootCmd.AddCommand(workspaceCmd)

	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbBackupCmd)
	dbCmd.AddCommand(dbLogCmd)
	dbLogCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(dbCmd)

	reviewCmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace name")
	reviewCmd.MarkFlagRequired("workspace")
	rootCmd.AddCommand(reviewCmd)

	reportCmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace name")
	reportCmd.MarkFlagRequired("workspace")
	reportCmd.Flags().String("csv", "", "Write a CSV report to this path")
	reportCmd.Flags().String("excel", "", "Write an Excel report to this path")
	reportCmd.Flags().Bool("export", false, "Upload the report bundle to a vault")
	reportCmd.Flags().String("vault", "", "Vault name (default: first configured)")
	reportCmd.Flags().Bool("content", true, "Include flagged file content in the export")
	reportCmd.Flags().Bool("encrypt", false, "Encrypt the exported bundle")
	rootCmd.AddCommand(reportCmd)
}
