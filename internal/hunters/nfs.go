package hunters

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/vmware/go-nfs-client/nfs"
	"github.com/vmware/go-nfs-client/nfs/rpc"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

// NFSHunter mounts one NFSv3 export and walks it via READDIRPLUS.
type NFSHunter struct {
	common
	export string
	uid    uint32
	gid    uint32
}

// NewNFSHunter creates a hunter for the given export on host. uid/gid
// are presented as AUTH_UNIX credentials; many exports only honor
// specific IDs.
func NewNFSHunter(workspace, host string, port int64, export string, uid, gid uint32, scratch sfh.Scratch, limits sfh.Limits, logger sfh.Logger) *NFSHunter {
	if port <= 0 {
		port = 2049
	}
	return &NFSHunter{
		common: common{
			target:  sfh.Target{Workspace: workspace, Address: host, Port: port, Kind: model.KindNFS},
			limits:  limits,
			scratch: scratch,
			logger:  logger,
		},
		export: export,
		uid:    uid,
		gid:    gid,
	}
}

// Enumerate mounts the export and walks it. Mount failures are fatal;
// unreadable directories and files are logged and skipped.
func (h *NFSHunter) Enumerate(ctx context.Context, q *sfh.WorkQueue) error {
	mount, err := nfs.DialMount(h.target.Address)
	if err != nil {
		return fmt.Errorf("connecting to mountd on %s: %w", h.target.Address, err)
	}
	defer mount.Close()

	hostname, _ := os.Hostname()
	auth := rpc.NewAuthUnix(hostname, h.uid, h.gid)

	volume, err := mount.Mount(h.export, auth.Auth())
	if err != nil {
		return fmt.Errorf("mounting export %s on %s: %w", h.export, h.target.Address, err)
	}
	defer volume.Close()

	dirs := []string{"."}
	for len(dirs) > 0 {
		dir := dirs[len(dirs)-1]
		dirs = dirs[:len(dirs)-1]

		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := volume.ReadDirPlus(dir)
		if err != nil {
			h.logger.Error("cannot access item", "export", h.export, "path", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			name := entry.FileName
			if name == "." || name == ".." {
				continue
			}
			full := path.Join(dir, name)
			if entry.IsDir() {
				dirs = append(dirs, full)
				continue
			}

			attr := entry.Attr.Attr
			e := h.newEntry(h.export, full, int64(attr.Filesize))
			if e == nil {
				continue
			}
			atime := nfsTime(attr.Atime)
			mtime := nfsTime(attr.Mtime)
			ctime := nfsTime(attr.Ctime)
			e.AccessTime, e.ModifiedTime, e.CreationTime = &atime, &mtime, &ctime

			if !e.Oversize {
				fetch, err := h.spoolNFSFile(volume, full)
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

func (h *NFSHunter) spoolNFSFile(volume *nfs.Target, fullPath string) (func() ([]byte, error), error) {
	f, err := volume.Open(fullPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return h.spool(f)
}

func nfsTime(t nfs.NFS3Time) time.Time {
	return time.Unix(int64(t.Seconds), int64(t.Nseconds)).UTC()
}

var _ sfh.Hunter = (*NFSHunter)(nil)
