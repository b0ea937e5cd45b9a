package main

import (
	"fmt"
	"os"

	"sfh-go/internal/app"
	"sfh-go/internal/hunters"
	"sfh-go/internal/model"
	"sfh-go/internal/sfh"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Flags shared by the scan commands.
var (
	workspace      string
	autoCreate     bool
	reanalyze      bool
	username       string
	password       string
	promptPassword bool
	domains        []string
	upnSuffixes    []string
)

// promptSecret reads a line from the terminal without echo.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(secret), nil
}

// resolvePassword applies the -P prompt when requested.
func resolvePassword() error {
	if !promptPassword {
		return nil
	}
	p, err := promptSecret("Password: ")
	if err != nil {
		return err
	}
	password = p
	return nil
}

// dynamicRules builds the content rules requested via --domains and
// --upn.
func dynamicRules() ([]*sfh.Rule, error) {
	rules, err := app.DomainRules(domains)
	if err != nil {
		return nil, err
	}
	upnRules, err := app.UPNRules(upnSuffixes)
	if err != nil {
		return nil, err
	}
	return append(rules, upnRules...), nil
}

// runScan wires a fully configured app, resolves the workspace and
// runs one service scan.
func runScan(cmd *cobra.Command, operation string, kind model.ServiceKind, opts hunters.Options) error {
	if err := resolvePassword(); err != nil {
		return err
	}
	opts.Username = username
	opts.Password = password

	extraRules, err := dynamicRules()
	if err != nil {
		return err
	}

	a, err := newApp(operation, extraRules)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.EnsureWorkspace(workspace, autoCreate); err != nil {
		return err
	}
	opts.Workspace = workspace

	stats, err := a.Scan(cmd.Context(), kind, opts, reanalyze)
	if err != nil {
		a.Fail()
		return fmt.Errorf("scan failed: %w", err)
	}

	if stats.Skipped {
		fmt.Println("Service already analyzed, skipped (use --reanalyze to rescan).")
		return nil
	}
	fmt.Printf("Scan complete: %d file(s) processed, %d failed\n", stats.Processed, stats.Failed)
	return nil
}

var localCmd = &cobra.Command{
	Use:   "local PATH...",
	Short: "Scan local directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, "local", model.KindLocal, hunters.Options{Paths: args})
	},
}

var smbCmd = &cobra.Command{
	Use:   "smb ADDRESS",
	Short: "Scan an SMB service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt64("port")
		domain, _ := cmd.Flags().GetString("domain")
		shares, _ := cmd.Flags().GetStringSlice("share")
		show, _ := cmd.Flags().GetBool("show")

		opts := hunters.Options{Address: args[0], Port: port, Domain: domain, Shares: shares}

		if show {
			if err := resolvePassword(); err != nil {
				return err
			}
			opts.Username = username
			opts.Password = password

			a, err := newApp("smb-show", nil)
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.ListShares(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("listing shares: %w", err)
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		}

		return runScan(cmd, "smb", model.KindSMB, opts)
	},
}

var ftpCmd = &cobra.Command{
	Use:   "ftp ADDRESS",
	Short: "Scan an FTP service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt64("port")
		useTLS, _ := cmd.Flags().GetBool("tls")

		return runScan(cmd, "ftp", model.KindFTP, hunters.Options{
			Address: args[0], Port: port, TLS: useTLS,
		})
	},
}

var nfsCmd = &cobra.Command{
	Use:   "nfs ADDRESS",
	Short: "Scan an NFS export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt64("port")
		export, _ := cmd.Flags().GetString("export")
		uid, _ := cmd.Flags().GetUint32("uid")
		gid, _ := cmd.Flags().GetUint32("gid")

		return runScan(cmd, "nfs", model.KindNFS, hunters.Options{
			Address: args[0], Port: port, Export: export, UID: uid, GID: gid,
		})
	},
}

var gitCmd = &cobra.Command{
	Use:   "git ADDRESS",
	Short: "Scan git repositories, including deleted history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, _ := cmd.Flags().GetStringSlice("repo")

		return runScan(cmd, "git", model.KindGit, hunters.Options{
			Address: args[0], Repos: repos,
		})
	},
}

// addScanFlags registers the flags every scan command shares.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace name")
	cmd.MarkFlagRequired("workspace")
	cmd.Flags().BoolVar(&autoCreate, "ignore", false, "Create the workspace if it does not exist")
	cmd.Flags().BoolVar(&reanalyze, "reanalyze", false, "Rescan even when the service is marked complete")
	cmd.Flags().StringSliceVar(&domains, "domains", nil, "Flag content mentioning accounts of these AD domains")
	cmd.Flags().StringSliceVar(&upnSuffixes, "upn", nil, "Flag content mentioning UPNs under these suffixes")
}

// addAuthFlags registers credential flags for network scans.
func addAuthFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&username, "user", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().BoolVarP(&promptPassword, "prompt", "P", false, "Prompt for the password")
}

func init() {
	addScanFlags(localCmd)
	rootCmd.AddCommand(localCmd)

	addScanFlags(smbCmd)
	addAuthFlags(smbCmd)
	smbCmd.Flags().Int64("port", 445, "SMB port")
	smbCmd.Flags().StringP("domain", "d", "", "AD domain for authentication")
	smbCmd.Flags().StringSlice("share", nil, "Shares to scan (default: all listable shares)")
	smbCmd.Flags().Bool("show", false, "List shares and exit without scanning")
	rootCmd.AddCommand(smbCmd)

	addScanFlags(ftpCmd)
	addAuthFlags(ftpCmd)
	ftpCmd.Flags().Int64("port", 21, "FTP port")
	ftpCmd.Flags().Bool("tls", false, "Use explicit TLS (FTPS)")
	rootCmd.AddCommand(ftpCmd)

	addScanFlags(nfsCmd)
	nfsCmd.Flags().Int64("port", 2049, "NFS port")
	nfsCmd.Flags().String("export", "", "Export path to mount")
	nfsCmd.MarkFlagRequired("export")
	nfsCmd.Flags().Uint32("uid", 0, "UID for AUTH_UNIX credentials")
	nfsCmd.Flags().Uint32("gid", 0, "GID for AUTH_UNIX credentials")
	rootCmd.AddCommand(nfsCmd)

	addScanFlags(gitCmd)
	addAuthFlags(gitCmd)
	gitCmd.Flags().StringSlice("repo", nil, "Repository URL or path (repeatable)")
	gitCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(gitCmd)
}
