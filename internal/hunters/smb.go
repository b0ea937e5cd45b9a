package hunters

import (
	"context"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"

	"github.com/hirochachacha/go-smb2"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

// SMBHunter walks the shares of an SMB service. When no shares are
// given all shares reported by the server are enumerated; unreadable
// shares, directories and files are logged and skipped.
type SMBHunter struct {
	common
	username string
	password string
	domain   string
	shares   []string
}

// NewSMBHunter creates a hunter against host:port with NTLM
// credentials. Empty username scans as the anonymous/guest user.
func NewSMBHunter(workspace, host string, port int64, username, password, domain string, shares []string, scratch sfh.Scratch, limits sfh.Limits, logger sfh.Logger) *SMBHunter {
	if port <= 0 {
		port = 445
	}
	return &SMBHunter{
		common: common{
			target:  sfh.Target{Workspace: workspace, Address: host, Port: port, Kind: model.KindSMB},
			limits:  limits,
			scratch: scratch,
			logger:  logger,
		},
		username: username,
		password: password,
		domain:   domain,
		shares:   shares,
	}
}

// ListShares connects and returns the share names offered by the server.
func (h *SMBHunter) ListShares(ctx context.Context) ([]string, error) {
	session, conn, err := h.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	defer session.Logoff()

	names, err := session.ListSharenames()
	if err != nil {
		return nil, fmt.Errorf("listing shares on %s: %w", h.target, err)
	}
	return names, nil
}

// Enumerate walks every share. Connection and authentication failures
// are fatal; anything below share level is recoverable.
func (h *SMBHunter) Enumerate(ctx context.Context, q *sfh.WorkQueue) error {
	session, conn, err := h.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer session.Logoff()

	shares := h.shares
	if len(shares) == 0 {
		shares, err = session.ListSharenames()
		if err != nil {
			return fmt.Errorf("listing shares on %s: %w", h.target, err)
		}
	}

	for _, share := range shares {
		h.logger.Debug("enumerating share", "service", h.target.String(), "share", share)
		if err := h.enumerateShare(ctx, session, share, q); err != nil {
			if ctx.Err() != nil {
				return err
			}
			h.logger.Error("cannot access share", "service", h.target.String(), "share", share, "error", err)
		}
	}
	return nil
}

func (h *SMBHunter) enumerateShare(ctx context.Context, session *smb2.Session, share string, q *sfh.WorkQueue) error {
	fs, err := session.Mount(share)
	if err != nil {
		return fmt.Errorf("mounting share: %w", err)
	}
	defer fs.Umount()

	dirs := []string{"."}
	for len(dirs) > 0 {
		dir := dirs[len(dirs)-1]
		dirs = dirs[:len(dirs)-1]

		if err := ctx.Err(); err != nil {
			return err
		}

		infos, err := fs.ReadDir(toSMBPath(dir))
		if err != nil {
			h.logger.Error("cannot access item", "share", share, "path", dir, "error", err)
			continue
		}

		for _, info := range infos {
			name := info.Name()
			if name == "." || name == ".." {
				continue
			}
			full := path.Join(dir, name)
			if info.IsDir() {
				dirs = append(dirs, full)
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}

			e := h.newEntry(share, full, info.Size())
			if e == nil {
				continue
			}
			mod := info.ModTime()
			e.ModifiedTime = &mod
			if stat, ok := info.Sys().(*smb2.FileStat); ok {
				atime, ctime := stat.LastAccessTime, stat.CreationTime
				e.AccessTime, e.CreationTime = &atime, &ctime
			}

			if !e.Oversize {
				// Content is spooled to scratch while the share is
				// still mounted; the analyzers read it back from disk.
				fetch, err := h.spoolSMBFile(fs, full)
				if err != nil {
					h.logger.Error("cannot read file", "path", e.String(), "error", err)
					continue
				}
				e.Fetch = fetch
			}
			if err := put(ctx, q, e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *SMBHunter) dial(ctx context.Context) (*smb2.Session, net.Conn, error) {
	addr := net.JoinHostPort(h.target.Address, strconv.FormatInt(h.target.Port, 10))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     h.username,
			Password: h.password,
			Domain:   h.domain,
		},
	}
	session, err := dialer.Dial(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("authenticating to %s: %w", h.target, err)
	}
	return session, conn, nil
}

func (h *SMBHunter) spoolSMBFile(fs *smb2.Share, fullPath string) (func() ([]byte, error), error) {
	f, err := fs.Open(toSMBPath(fullPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return h.spool(f)
}

// toSMBPath converts a forward-slash path to the backslash form the
// wire protocol expects.
func toSMBPath(p string) string {
	return strings.ReplaceAll(p, "/", `\`)
}

var _ sfh.Hunter = (*SMBHunter)(nil)
