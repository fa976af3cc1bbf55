package doctor

import (
	"context"

	"github.com/starford/hagal/internal/models"
)

// Confirmer decides whether a previewed run may be applied.
type Confirmer interface {
	Confirm(ctx context.Context, p Preview) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Preview) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, p Preview) (bool, error) { return f(ctx, p) }

// AutoConfirm approves every run.
var AutoConfirm = ConfirmFunc(func(context.Context, Preview) (bool, error) { return true, nil })

// ActiveNote provides the designated note for file-scoped runs.
type ActiveNote interface {
	CurrentNote(ctx context.Context) (models.NoteRef, bool)
}

// FixedNote is an ActiveNote that always returns the same note.
type FixedNote models.NoteRef

func (n FixedNote) CurrentNote(context.Context) (models.NoteRef, bool) {
	return models.NoteRef(n), n.Vault != "" && n.Fname != ""
}

// Inventory lists installed editor extension identifiers.
type Inventory interface {
	Installed(ctx context.Context) ([]string, error)
}

// StaticInventory is an Inventory over a fixed list.
type StaticInventory []string

func (s StaticInventory) Installed(context.Context) ([]string, error) { return s, nil }
