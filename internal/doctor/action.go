package doctor

import "fmt"

// Action is one of FixMetadata, CreateMissingLinked, RegenerateIDs or
// FindIncompatibleExtensions.
type Action interface {
	Name() string
	isAction()
}

// FixMetadata repairs missing headers, missing or malformed identifiers and
// identifier collisions.
type FixMetadata struct{}

// CreateMissingLinked creates a stub for every unresolved link target.
type CreateMissingLinked struct{}

// RegenerateIDs assigns a fresh identifier to every note in scope.
type RegenerateIDs struct{}

// FindIncompatibleExtensions checks installed editor extensions against
// the denylist. When Installed is nil the Inventory port is queried.
type FindIncompatibleExtensions struct {
	Installed []string
}

func (FixMetadata) Name() string                { return "fix-metadata" }
func (CreateMissingLinked) Name() string        { return "create-missing-linked-notes" }
func (RegenerateIDs) Name() string              { return "regenerate-ids" }
func (FindIncompatibleExtensions) Name() string { return "find-incompatible-extensions" }

func (FixMetadata) isAction()                {}
func (CreateMissingLinked) isAction()        {}
func (RegenerateIDs) isAction()              {}
func (FindIncompatibleExtensions) isAction() {}

// ActionNames lists the accepted action names.
var ActionNames = []string{
	FixMetadata{}.Name(),
	CreateMissingLinked{}.Name(),
	RegenerateIDs{}.Name(),
	FindIncompatibleExtensions{}.Name(),
}

// ParseAction maps an action name to its Action.
func ParseAction(name string) (Action, error) {
	switch name {
	case FixMetadata{}.Name():
		return FixMetadata{}, nil
	case CreateMissingLinked{}.Name():
		return CreateMissingLinked{}, nil
	case RegenerateIDs{}.Name():
		return RegenerateIDs{}, nil
	case FindIncompatibleExtensions{}.Name():
		return FindIncompatibleExtensions{}, nil
	default:
		return nil, fmt.Errorf("doctor: unknown action %q", name)
	}
}

// Scope bounds which notes an action considers.
type Scope int

const (
	// ScopeFile limits the run to the active note.
	ScopeFile Scope = iota
	// ScopeWorkspace covers every note in every vault.
	ScopeWorkspace
)

func (s Scope) String() string {
	if s == ScopeFile {
		return "file"
	}
	return "workspace"
}

// ParseScope maps "file" or "workspace" to a Scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "file":
		return ScopeFile, nil
	case "workspace", "":
		return ScopeWorkspace, nil
	default:
		return 0, fmt.Errorf("doctor: unknown scope %q", s)
	}
}
