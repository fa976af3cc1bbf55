// Package storage defines the vault file-system abstraction.
package storage

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/starford/hagal/internal/models"
)

// Provider is the interface for vault file operations. Paths are relative to
// the vault root.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// List returns every note file in the vault, sorted by fname.
	List() ([]models.NoteFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	// Create writes a new file at path and fails with apperr.ErrAlreadyExists
	// when one is already there. It never overwrites.
	Create(path string, content []byte) error
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
