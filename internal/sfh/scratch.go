package sfh

import "io"

// Scratch is a temporary work area used by enumerators (spooling
// network-fetched content, git clones) and by archive extraction.
// Everything created through a Scratch lives until Cleanup.
type Scratch interface {
	// TempDir creates a fresh directory inside the scratch area.
	TempDir(pattern string) (string, error)

	// TempFile spools r into a file inside the scratch area and
	// returns its path.
	TempFile(r io.Reader) (string, error)

	// Cleanup removes the scratch area and everything in it.
	Cleanup() error
}
