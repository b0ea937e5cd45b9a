package hunters

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"path"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

// FTPHunter walks an FTP service starting at its login directory.
type FTPHunter struct {
	common
	username string
	password string
	useTLS   bool
}

// NewFTPHunter creates a hunter against host:port. Empty credentials
// fall back to anonymous login.
func NewFTPHunter(workspace, host string, port int64, username, password string, useTLS bool, scratch sfh.Scratch, limits sfh.Limits, logger sfh.Logger) *FTPHunter {
	if port <= 0 {
		port = 21
	}
	return &FTPHunter{
		common: common{
			target:  sfh.Target{Workspace: workspace, Address: host, Port: port, Kind: model.KindFTP},
			limits:  limits,
			scratch: scratch,
			logger:  logger,
		},
		username: username,
		password: password,
		useTLS:   useTLS,
	}
}

// Enumerate walks the service. Connection and login failures are
// fatal; unreadable directories and files are logged and skipped.
func (h *FTPHunter) Enumerate(ctx context.Context, q *sfh.WorkQueue) error {
	addr := net.JoinHostPort(h.target.Address, strconv.FormatInt(h.target.Port, 10))

	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(30 * time.Second),
	}
	if h.useTLS {
		// Internal FTP services almost always run on self-signed
		// certificates.
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{
			ServerName:         h.target.Address,
			InsecureSkipVerify: true,
		}))
	}

	client, err := ftp.Dial(addr, opts...)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer client.Quit()

	username, password := h.username, h.password
	if username == "" {
		username, password = "anonymous", "anonymous"
	}
	if err := client.Login(username, password); err != nil {
		return fmt.Errorf("authenticating to %s: %w", h.target, err)
	}

	root, err := client.CurrentDir()
	if err != nil {
		root = "/"
	}
	return h.enumerateDir(ctx, client, root, q)
}

func (h *FTPHunter) enumerateDir(ctx context.Context, client *ftp.ServerConn, dir string, q *sfh.WorkQueue) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := client.List(dir)
	if err != nil {
		h.logger.Error("cannot access item", "path", dir, "error", err)
		return nil
	}

	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		full := path.Join(dir, entry.Name)

		switch entry.Type {
		case ftp.EntryTypeFolder:
			if err := h.enumerateDir(ctx, client, full, q); err != nil {
				return err
			}
		case ftp.EntryTypeFile:
			e := h.newEntry("", full, int64(entry.Size))
			if e == nil {
				continue
			}
			if !entry.Time.IsZero() {
				mod := entry.Time
				e.ModifiedTime = &mod
			}
			if !e.Oversize {
				fetch, err := h.spoolFTPFile(client, full)
				if err != nil {
					h.logger.Error("cannot read file", "path", e.String(), "error", err)
					continue
				}
				e.Fetch = fetch
			}
			if err := put(ctx, q, e); err != nil {
				return err
			}
		default:
			h.logger.Debug("skipping item", "path", full, "type", fmt.Sprintf("%d", entry.Type))
		}
	}
	return nil
}

func (h *FTPHunter) spoolFTPFile(client *ftp.ServerConn, fullPath string) (func() ([]byte, error), error) {
	resp, err := client.Retr(fullPath)
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return h.spool(resp)
}

var _ sfh.Hunter = (*FTPHunter)(nil)
