package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/parser"
	"github.com/starford/hagal/internal/resolver"
	"github.com/starford/hagal/internal/workspace"
)

// Note is a note as read at the start of a run.
type Note struct {
	Ref models.NoteRef
	// Path is relative to the vault root.
	Path string
	Doc  *parser.Document
}

// ID returns the note's identifier, empty when it has none.
func (n *Note) ID() string {
	if n.Doc == nil || n.Doc.Header == nil {
		return ""
	}
	id, _ := n.Doc.Header.ID()
	return id
}

// Snapshot is the read-only view every plan is computed from.
type Snapshot struct {
	// Notes are ordered by vault declaration order, then fname.
	Notes []*Note
	Names resolver.Set
	// IDCounts maps each identifier to the number of notes carrying it.
	IDCounts map[string]int

	byRef map[models.NoteRef]*Note
}

// Note looks up a note by address.
func (s *Snapshot) Note(ref models.NoteRef) (*Note, bool) {
	n, ok := s.byRef[ref]
	return n, ok
}

// IDs returns a fresh copy of the identifier set.
func (s *Snapshot) IDs() map[string]struct{} {
	out := make(map[string]struct{}, len(s.IDCounts))
	for id := range s.IDCounts {
		out[id] = struct{}{}
	}
	return out
}

// loadSnapshot lists every vault and reads all notes in parallel. A vault
// that cannot be listed aborts the run; a note that cannot be read is
// logged and left out.
func loadSnapshot(ctx context.Context, ws *workspace.Workspace, logger *slog.Logger) (*Snapshot, error) {
	vaults := ws.Vaults()
	if len(vaults) == 0 {
		return nil, fmt.Errorf("doctor: workspace has no vaults: %w", apperr.ErrConfiguration)
	}

	snap := &Snapshot{
		Names:    resolver.NewSet(),
		IDCounts: map[string]int{},
		byRef:    map[models.NoteRef]*Note{},
	}
	var slots []*Note
	for _, v := range vaults {
		snap.Names.AddVault(v.Name)
		files, err := ws.Store(v.Name).List()
		if err != nil {
			return nil, fmt.Errorf("doctor: list vault %s: %w: %w", v.Name, apperr.ErrConfiguration, err)
		}
		for _, f := range files {
			slots = append(slots, &Note{Ref: models.NoteRef{Vault: v.Name, Fname: f.Fname}, Path: f.Path})
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0) * 2)
	for _, n := range slots {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			data, err := ws.Store(n.Ref.Vault).Read(n.Path)
			if err != nil {
				logger.Warn("doctor: read failed",
					slog.String("vault", n.Ref.Vault),
					slog.String("path", n.Path),
					slog.String("error", err.Error()))
				return nil
			}
			n.Doc = parser.Parse(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("doctor: read notes: %w", err)
	}

	for _, n := range slots {
		// Unreadable files still occupy their name.
		snap.Names.Add(n.Ref.Vault, n.Ref.Fname)
		if n.Doc == nil {
			continue
		}
		snap.Notes = append(snap.Notes, n)
		snap.byRef[n.Ref] = n
		if id := n.ID(); id != "" {
			snap.IDCounts[id]++
		}
	}
	return snap, nil
}
