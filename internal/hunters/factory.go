package hunters

import (
	"fmt"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

// Options carries all per-service parameters a hunter may need. Each
// kind reads only the fields that apply to it.
type Options struct {
	Workspace string
	Address   string
	Port      int64

	// Local.
	Paths []string

	// SMB.
	Shares []string
	Domain string

	// SMB, FTP, git.
	Username string
	Password string

	// FTP.
	TLS bool

	// NFS.
	Export string
	UID    uint32
	GID    uint32

	// Git.
	Repos []string
}

// New builds the hunter for the given service kind.
func New(kind model.ServiceKind, opts Options, limits sfh.Limits, scratch sfh.Scratch, logger sfh.Logger) (sfh.Hunter, error) {
	switch kind {
	case model.KindLocal:
		return NewLocalHunter(opts.Workspace, opts.Paths, limits, logger)
	case model.KindSMB:
		return NewSMBHunter(opts.Workspace, opts.Address, opts.Port, opts.Username, opts.Password, opts.Domain, opts.Shares, scratch, limits, logger), nil
	case model.KindFTP:
		return NewFTPHunter(opts.Workspace, opts.Address, opts.Port, opts.Username, opts.Password, opts.TLS, scratch, limits, logger), nil
	case model.KindNFS:
		return NewNFSHunter(opts.Workspace, opts.Address, opts.Port, opts.Export, opts.UID, opts.GID, scratch, limits, logger), nil
	case model.KindGit:
		return NewGitHunter(opts.Workspace, opts.Address, opts.Repos, opts.Username, opts.Password, scratch, limits, logger)
	default:
		return nil, fmt.Errorf("unknown service kind %q", kind)
	}
}
