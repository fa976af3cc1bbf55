package doctor

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/parser"
	"github.com/starford/hagal/internal/storage"
	"github.com/starford/hagal/internal/workspace"
)

// outcome of applying one item.
type outcome int

const (
	outCreated outcome = iota
	outRewritten
	outSkipped
)

type executor struct {
	ws     *workspace.Workspace
	now    time.Time
	logger *slog.Logger
}

// apply runs the plan in order. A failing item is recorded and the rest
// still run.
func (e *executor) apply(plan Plan) *RepairSummary {
	sum := newRepairSummary()
	for _, it := range plan.Items {
		path := e.ws.Path(it.Ref)
		res, err := e.applyItem(it)
		if err != nil {
			e.logger.Warn("doctor: repair failed",
				slog.String("kind", it.Kind.String()),
				slog.String("path", path),
				slog.String("error", err.Error()))
			sum.Failed = append(sum.Failed, Failure{Path: path, Reason: err.Error()})
			continue
		}
		switch res {
		case outCreated:
			sum.Created = append(sum.Created, path)
		case outRewritten:
			sum.Rewritten = append(sum.Rewritten, path)
		default:
			sum.Skipped = append(sum.Skipped, path)
		}
		e.logger.Debug("doctor: repair applied",
			slog.String("kind", it.Kind.String()),
			slog.String("path", path))
	}
	return sum
}

func (e *executor) applyItem(it Item) (outcome, error) {
	store := e.ws.Store(it.Ref.Vault)
	if store == nil {
		return 0, fmt.Errorf("vault %s: %w", it.Ref.Vault, apperr.ErrNotFound)
	}
	switch it.Kind {
	case CreateStub:
		return e.createStub(store, it)
	case RewriteHeader:
		return e.update(store, it, func(h *parser.Header) {
			merge(h, defaultFields(it.Ref.Fname, it.ID, e.now))
		})
	case ReassignID:
		return e.update(store, it, func(h *parser.Header) { h.SetID(it.ID) })
	default:
		return 0, fmt.Errorf("unknown item kind %d", it.Kind)
	}
}

func (e *executor) createStub(store storage.Provider, it Item) (outcome, error) {
	h := parser.NewHeader()
	merge(h, defaultFields(it.Ref.Fname, it.ID, e.now))
	content, err := (&parser.Document{Header: h}).Render()
	if err != nil {
		return 0, err
	}
	err = store.Create(notePath(it), content)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		return outSkipped, nil
	}
	if err != nil {
		return 0, err
	}
	return outCreated, nil
}

// update re-reads the note, applies mutate to its header and writes it back
// unless nothing changed.
func (e *executor) update(store storage.Provider, it Item, mutate func(*parser.Header)) (outcome, error) {
	p := notePath(it)
	data, err := store.Read(p)
	if err != nil {
		return 0, err
	}
	doc := parser.Parse(data)
	if doc.Header == nil {
		doc.Header = parser.NewHeader()
	}
	mutate(doc.Header)
	out, err := doc.Render()
	if err != nil {
		return 0, err
	}
	if bytes.Equal(out, data) {
		return outSkipped, nil
	}
	if err := store.Write(p, out); err != nil {
		return 0, err
	}
	return outRewritten, nil
}

func notePath(it Item) string { return models.NotePath(it.Ref.Fname) }
