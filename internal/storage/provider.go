// Package storage defines the vault file-system abstraction.
package storage

import "time"

// File describes one Markdown file in the vault.
type File struct {
	Path     string // relative to the vault root
	Checksum string // hex SHA-256 of the contents
	ModTime  time.Time
}

// Provider is the interface for vault file operations.
type Provider interface {
	// Root is the absolute vault directory.
	Root() string
	// List returns every .md file under dir (relative to vault root).
	List(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
}
