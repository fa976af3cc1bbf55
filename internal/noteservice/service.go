// Package noteservice coordinates the workspace, the note index and doctor
// runs for the HTTP and MCP surfaces.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/doctor"
	"github.com/starford/hagal/internal/index"
	"github.com/starford/hagal/internal/links"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/parser"
	"github.com/starford/hagal/internal/resolver"
	"github.com/starford/hagal/internal/sse"
	"github.com/starford/hagal/internal/storage"
	"github.com/starford/hagal/internal/workspace"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Vault     string           `json:"vault"`
	Fname     string           `json:"fname"`
	Path      string           `json:"path"`
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Header    map[string]any   `json:"header,omitempty"`
	Body      string           `json:"body"`
	Checksum  string           `json:"checksum"`
	Links     []LinkItem       `json:"links"`
	Backlinks []models.NoteRef `json:"backlinks"`
}

// LinkItem is one outgoing link and whether its target exists.
type LinkItem struct {
	Display  string         `json:"display,omitempty"`
	Target   models.NoteRef `json:"target"`
	Raw      string         `json:"raw"`
	Resolved bool           `json:"resolved"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Vault     string    `json:"vault"`
	Fname     string    `json:"fname"`
	Path      string    `json:"path"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DoctorRequest describes one doctor run requested over the API or MCP.
type DoctorRequest struct {
	Action string `json:"action"`
	Scope  string `json:"scope"`
	// Note is the designated note for file scope, as "vault/fname".
	Note      string   `json:"note,omitempty"`
	Installed []string `json:"installed,omitempty"`
	// Confirm applies the plan; otherwise only a preview is computed.
	Confirm bool `json:"confirm"`
}

// DoctorResponse carries either a preview or the result of an applied run.
type DoctorResponse struct {
	Preview *doctor.Preview `json:"preview,omitempty"`
	Result  *doctor.Result  `json:"result,omitempty"`
}

// Service coordinates workspace, index and doctor operations.
type Service struct {
	ws     *workspace.Workspace
	db     index.NoteIndex
	broker *sse.Broker
	logger *slog.Logger
	opts   []doctor.Option
}

// NewService creates a new note service. broker may be nil.
func NewService(ws *workspace.Workspace, db index.NoteIndex, broker *sse.Broker, logger *slog.Logger, opts ...doctor.Option) *Service {
	return &Service{ws: ws, db: db, broker: broker, logger: logger, opts: opts}
}

// Vaults returns the workspace vaults in declaration order.
func (s *Service) Vaults(_ context.Context) []models.Vault {
	return s.ws.Vaults()
}

// GetNote reads a note from disk and enriches it with links and backlinks.
func (s *Service) GetNote(_ context.Context, ref models.NoteRef) (*NoteDetail, error) {
	store := s.ws.Store(ref.Vault)
	if store == nil {
		return nil, fmt.Errorf("noteservice: vault %s: %w", ref.Vault, apperr.ErrNotFound)
	}
	data, err := store.Read(models.NotePath(ref.Fname))
	if err != nil {
		return nil, err
	}
	doc := parser.Parse(data)

	detail := &NoteDetail{
		Vault:    ref.Vault,
		Fname:    ref.Fname,
		Path:     s.ws.Path(ref),
		Title:    ref.Fname,
		Body:     doc.Body,
		Checksum: storage.Checksum(data),
		Links:    []LinkItem{},
	}
	if doc.Header != nil {
		detail.ID, _ = doc.Header.ID()
		detail.Header = make(map[string]any)
		for _, k := range doc.Header.Keys() {
			v, _ := doc.Header.Get(k)
			detail.Header[k] = v.Any()
		}
		if t, ok := detail.Header["title"].(string); ok && t != "" {
			detail.Title = t
		}
	}

	ns := indexNamespace{ws: s.ws, db: s.db}
	for l := range links.All(doc.Body) {
		r := resolver.Resolve(l, ref.Vault, ns)
		detail.Links = append(detail.Links, LinkItem{Display: l.Display, Target: r.Target, Raw: l.Raw, Resolved: r.Found})
	}

	bl, err := s.db.Backlinks(ref)
	if err != nil {
		return nil, err
	}
	detail.Backlinks = nonNilSlice(bl)
	return detail, nil
}

// ListNotes returns a page of indexed notes, optionally for one vault.
func (s *Service) ListNotes(_ context.Context, vault string, limit, offset int) ([]NoteListItem, int, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, total, err := s.db.ListNotes(vault, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Vault:     r.Vault,
			Fname:     r.Fname,
			Path:      r.Path,
			ID:        r.NoteID,
			Title:     r.Title,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Graph returns all nodes and links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// Backlinks returns every note that links to ref.
func (s *Service) Backlinks(_ context.Context, ref models.NoteRef) ([]models.NoteRef, error) {
	bl, err := s.db.Backlinks(ref)
	return nonNilSlice(bl), err
}

// BrokenLinks returns every indexed link whose target note is missing.
func (s *Service) BrokenLinks(_ context.Context) ([]index.BrokenLink, error) {
	bl, err := s.db.BrokenLinks()
	return nonNilSlice(bl), err
}

// IndexNote re-reads one note into the index and announces the change.
func (s *Service) IndexNote(ref models.NoteRef, kind string) {
	exists, err := index.Refresh(s.db, s.ws, ref)
	if err != nil {
		s.logger.Warn("noteservice: reindex failed", slog.String("path", s.ws.Path(ref)), slog.String("error", err.Error()))
		return
	}
	if !exists {
		kind = index.EventDeleted
	}
	if s.broker != nil {
		s.broker.PublishNoteEvent(kind, ref, s.ws.Path(ref))
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// indexNamespace resolves links against the index.
type indexNamespace struct {
	ws *workspace.Workspace
	db index.NoteIndex
}

func (n indexNamespace) HasVault(name string) bool {
	_, ok := n.ws.Vault(name)
	return ok
}

func (n indexNamespace) HasNote(vault, fname string) bool {
	cs, err := n.db.GetChecksum(models.NoteRef{Vault: vault, Fname: fname})
	return err == nil && cs != ""
}
