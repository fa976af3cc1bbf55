package index

import "github.com/starford/hagal/internal/models"

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, links []models.NoteRef) error
	DeleteNote(ref models.NoteRef) error
	GetChecksum(ref models.NoteRef) (string, error)
	GetNote(ref models.NoteRef) (*NoteRow, error)
	ListNotes(vault string, limit, offset int) ([]NoteRow, int, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Backlinks(ref models.NoteRef) ([]models.NoteRef, error)
	BrokenLinks() ([]BrokenLink, error)
	AllChecksums(vault string) (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
