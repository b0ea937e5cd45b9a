package sfh

import "io"

// Vault is an export destination for report bundles (report files plus
// the flagged content, keyed by digest). All operations stream via
// io.Reader/io.Writer to support large bundles.
type Vault interface {
	// Put stores an object under the given name. Storing the same name
	// twice overwrites the previous object.
	Put(name string, r io.Reader, size int64) error

	// Get retrieves an object by name and writes it to w.
	Get(name string, w io.Writer) error

	// ValidateSetup verifies the vault is accessible and properly
	// configured.
	ValidateSetup() error
}
