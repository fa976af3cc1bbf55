// Package doctor finds and repairs broken links and note metadata across a
// workspace.
//
// A run reads every note once, computes a Plan from that snapshot, asks the
// Confirmer, then applies the plan item by item. Nothing is written before
// the whole plan exists, and a failing item does not stop the others.
package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/ids"
	"github.com/starford/hagal/internal/workspace"
)

// Doctor runs actions against one workspace.
type Doctor struct {
	ws        *workspace.Workspace
	confirm   Confirmer
	active    ActiveNote
	inventory Inventory
	source    ids.Source
	clock     func() time.Time
	logger    *slog.Logger
}

// Option configures a Doctor.
type Option func(*Doctor)

// WithConfirmer sets the confirmation port. Without one every plan is
// declined.
func WithConfirmer(c Confirmer) Option {
	return func(d *Doctor) { d.confirm = c }
}

// WithActiveNote sets the provider used for file-scoped runs.
func WithActiveNote(a ActiveNote) Option {
	return func(d *Doctor) { d.active = a }
}

// WithInventory sets the extension inventory.
func WithInventory(i Inventory) Option {
	return func(d *Doctor) { d.inventory = i }
}

// WithIDSource replaces the random identifier source.
func WithIDSource(src ids.Source) Option {
	return func(d *Doctor) { d.source = src }
}

// WithClock sets the time source for header timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Doctor) { d.clock = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Doctor) { d.logger = l }
}

// New returns a Doctor for ws.
func New(ws *workspace.Workspace, opts ...Option) *Doctor {
	d := &Doctor{
		ws:      ws,
		confirm: ConfirmFunc(func(context.Context, Preview) (bool, error) { return false, nil }),
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run plans action over scope, asks for confirmation and applies the plan.
// Declining yields an empty summary and no error. Errors are returned only
// when the workspace cannot be enumerated or the active note is missing.
func (d *Doctor) Run(ctx context.Context, action Action, scope Scope) (Result, error) {
	res, preview, err := d.plan(ctx, action, scope)
	if err != nil {
		return res, err
	}
	if res.Extensions != nil {
		d.logger.Info("doctor: extensions checked", slog.Int("installed", countInstalled(res.Extensions)))
		return res, nil
	}
	if res.Plan.Empty() {
		d.logger.Info("doctor: nothing to repair",
			slog.String("action", action.Name()),
			slog.String("scope", scope.String()))
		return res, nil
	}

	ok, err := d.confirm.Confirm(ctx, preview)
	if err != nil {
		return res, fmt.Errorf("doctor: confirm: %w", err)
	}
	if !ok {
		d.logger.Info("doctor: run declined", slog.String("action", action.Name()))
		return res, nil
	}

	exec := &executor{ws: d.ws, now: d.clock(), logger: d.logger}
	res.Repair = exec.apply(res.Plan)
	res.Applied = true
	d.logger.Info("doctor: run complete",
		slog.String("action", action.Name()),
		slog.String("scope", scope.String()),
		slog.Int("created", len(res.Repair.Created)),
		slog.Int("rewritten", len(res.Repair.Rewritten)),
		slog.Int("skipped", len(res.Repair.Skipped)),
		slog.Int("failed", len(res.Repair.Failed)))
	return res, nil
}

// Preview computes what Run would do without asking or writing anything.
func (d *Doctor) Preview(ctx context.Context, action Action, scope Scope) (Preview, error) {
	_, p, err := d.plan(ctx, action, scope)
	return p, err
}

func (d *Doctor) plan(ctx context.Context, action Action, scope Scope) (Result, Preview, error) {
	res := Result{Action: action.Name(), Scope: scope}
	preview := Preview{Action: action.Name(), Scope: scope.String()}

	if a, ok := action.(FindIncompatibleExtensions); ok {
		installed, err := d.installed(ctx, a)
		if err != nil {
			return res, preview, err
		}
		res.Extensions = checkExtensions(installed)
		preview.Extensions = res.Extensions
		return res, preview, nil
	}
	res.Repair = newRepairSummary()

	snap, err := loadSnapshot(ctx, d.ws, d.logger)
	if err != nil {
		return res, preview, err
	}
	notes := snap.Notes
	if scope == ScopeFile {
		if d.active == nil {
			return res, preview, fmt.Errorf("doctor: %w", apperr.ErrNoActiveNote)
		}
		ref, ok := d.active.CurrentNote(ctx)
		if !ok {
			return res, preview, fmt.Errorf("doctor: %w", apperr.ErrNoActiveNote)
		}
		n, ok := snap.Note(ref)
		if !ok {
			return res, preview, fmt.Errorf("doctor: note %s: %w", ref, apperr.ErrNotFound)
		}
		notes = []*Note{n}
	}

	p := newPlanner(snap, ids.New(d.source), d.logger)
	res.Plan = p.build(action, notes, scope == ScopeWorkspace)
	preview.Plan = res.Plan
	for _, it := range res.Plan.Items {
		preview.Paths = append(preview.Paths, d.ws.Path(it.Ref))
	}
	return res, preview, nil
}

func (d *Doctor) installed(ctx context.Context, a FindIncompatibleExtensions) ([]string, error) {
	if a.Installed != nil || d.inventory == nil {
		return a.Installed, nil
	}
	list, err := d.inventory.Installed(ctx)
	if err != nil {
		return nil, fmt.Errorf("doctor: extension inventory: %w", err)
	}
	return list, nil
}

func countInstalled(r *ExtensionReport) int {
	n := 0
	for _, s := range r.InstallStatus {
		if s.Installed {
			n++
		}
	}
	return n
}
