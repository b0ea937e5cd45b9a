package report

import (
	"bytes"
	"fmt"
	"io"
	"path"

	"sfh-go/internal/sfh"
)

// Exporter writes report bundles to a vault: the CSV and Excel reports
// at the bundle root plus each unique flagged file under files/, keyed
// by digest. With a configured encryptor every object is encrypted and
// gains an .age suffix.
type Exporter struct {
	db        sfh.Database
	vault     sfh.Vault
	encryptor sfh.Encryptor
	logger    sfh.Logger
}

func NewExporter(db sfh.Database, vault sfh.Vault, encryptor sfh.Encryptor, logger sfh.Logger) *Exporter {
	if logger == nil {
		logger = sfh.NewNopLogger()
	}
	return &Exporter{db: db, vault: vault, encryptor: encryptor, logger: logger}
}

// Export builds and uploads the bundle for one workspace. The bundle
// prefix is the workspace name, so repeated exports overwrite each
// other. Returns the number of content objects uploaded.
func (e *Exporter) Export(workspace string, includeContent bool) (int, error) {
	if err := e.vault.ValidateSetup(); err != nil {
		return 0, fmt.Errorf("validating vault: %w", err)
	}
	if e.encryptor != nil && !e.encryptor.IsConfigured() {
		return 0, fmt.Errorf("encryption requested but no key pair is configured")
	}

	records, err := e.db.FlaggedFiles(workspace)
	if err != nil {
		return 0, fmt.Errorf("loading flagged files: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return 0, fmt.Errorf("rendering CSV report: %w", err)
	}
	if err := e.put(path.Join(workspace, "report.csv"), buf.Bytes()); err != nil {
		return 0, err
	}

	buf.Reset()
	if err := WriteExcel(&buf, records); err != nil {
		return 0, fmt.Errorf("rendering Excel report: %w", err)
	}
	if err := e.put(path.Join(workspace, "report.xlsx"), buf.Bytes()); err != nil {
		return 0, err
	}

	if !includeContent {
		return 0, nil
	}

	uploaded := 0
	seen := make(map[string]bool)
	for _, r := range records {
		if seen[r.SHA256] {
			continue
		}
		seen[r.SHA256] = true

		content, err := e.db.FileContent(r.FileID)
		if err != nil {
			return uploaded, fmt.Errorf("loading content of %s: %w", r.SHA256, err)
		}
		name := path.Join(workspace, "files", r.SHA256)
		if ext := r.Extension; ext != "" {
			name += "." + ext
		}
		if err := e.put(name, content); err != nil {
			return uploaded, err
		}
		uploaded++
	}

	e.logger.Info("exported report bundle", "workspace", workspace, "paths", len(records), "files", uploaded)
	return uploaded, nil
}

// put uploads one object, encrypting it first when an encryptor is
// present.
func (e *Exporter) put(name string, content []byte) error {
	r := io.Reader(bytes.NewReader(content))
	size := int64(len(content))

	if e.encryptor != nil {
		var sealed bytes.Buffer
		if err := e.encryptor.Encrypt(r, &sealed); err != nil {
			return fmt.Errorf("encrypting %s: %w", name, err)
		}
		name += ".age"
		size = int64(sealed.Len())
		r = &sealed
	}

	if err := e.vault.Put(name, r, size); err != nil {
		return fmt.Errorf("storing %s: %w", name, err)
	}
	return nil
}
