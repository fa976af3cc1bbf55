package doctor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/hagal/internal/ids"
	"github.com/starford/hagal/internal/links"
	"github.com/starford/hagal/internal/metadata"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/resolver"
)

// ItemKind tags a plan item.
type ItemKind int

const (
	CreateStub ItemKind = iota
	RewriteHeader
	ReassignID
)

func (k ItemKind) String() string {
	switch k {
	case CreateStub:
		return "createStub"
	case RewriteHeader:
		return "rewriteHeader"
	case ReassignID:
		return "reassignId"
	default:
		return "unknown"
	}
}

func (k ItemKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ItemKind) UnmarshalText(b []byte) error {
	for _, c := range []ItemKind{CreateStub, RewriteHeader, ReassignID} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("doctor: unknown item kind %q", b)
}

// Item is one planned repair.
type Item struct {
	Kind ItemKind       `json:"kind"`
	Ref  models.NoteRef `json:"note"`
	// ID is the identifier the item assigns.
	ID string `json:"id"`
	// Cause names the verdict or the linking note behind the item.
	Cause string `json:"cause,omitempty"`
}

// Plan is an ordered, side-effect free list of repairs.
type Plan struct {
	Items []Item `json:"items"`
}

func (p Plan) Empty() bool { return len(p.Items) == 0 }

// Count returns how many items have kind k.
func (p Plan) Count(k ItemKind) int {
	n := 0
	for _, it := range p.Items {
		if it.Kind == k {
			n++
		}
	}
	return n
}

// planner owns the run's identifier set; every id it hands out is added to
// it before the next one is generated.
type planner struct {
	snap   *Snapshot
	gen    *ids.Generator
	used   map[string]struct{}
	logger *slog.Logger
}

func newPlanner(snap *Snapshot, gen *ids.Generator, logger *slog.Logger) *planner {
	return &planner{snap: snap, gen: gen, used: snap.IDs(), logger: logger}
}

// build computes the plan for action over the notes in scope. whole reports
// whether scope is the entire workspace.
func (p *planner) build(action Action, scope []*Note, whole bool) Plan {
	switch action.(type) {
	case FixMetadata:
		return p.fixMetadata(scope, whole)
	case CreateMissingLinked:
		return p.createMissingLinked(scope)
	case RegenerateIDs:
		return p.regenerateIDs(scope)
	default:
		return Plan{}
	}
}

func (p *planner) fixMetadata(scope []*Note, whole bool) Plan {
	// First holder of each identifier in workspace order keeps it.
	keeper := make(map[string]models.NoteRef, len(p.snap.IDCounts))
	for _, n := range p.snap.Notes {
		if id := n.ID(); id != "" {
			if _, ok := keeper[id]; !ok {
				keeper[id] = n.Ref
			}
		}
	}

	var plan Plan
	for _, n := range scope {
		verdict := metadata.Validate(n.Doc.Header, p.snap.IDCounts)
		switch verdict {
		case metadata.Valid:
			continue
		case metadata.MissingHeader, metadata.MissingIdentifier:
			plan.Items = append(plan.Items, Item{Kind: RewriteHeader, Ref: n.Ref, ID: p.next(), Cause: verdict.String()})
		case metadata.InvalidIdentifier:
			plan.Items = append(plan.Items, Item{Kind: ReassignID, Ref: n.Ref, ID: p.next(), Cause: verdict.String()})
		case metadata.DuplicateIdentifier:
			// In file scope the other holders are out of reach, so the
			// designated note gives up the identifier.
			if whole && keeper[n.ID()] == n.Ref {
				continue
			}
			plan.Items = append(plan.Items, Item{Kind: ReassignID, Ref: n.Ref, ID: p.next(), Cause: verdict.String()})
		}
	}
	return plan
}

func (p *planner) createMissingLinked(scope []*Note) Plan {
	var plan Plan
	planned := map[models.NoteRef]struct{}{}
	for _, n := range scope {
		for l := range links.All(n.Doc.Body) {
			r := resolver.Resolve(l, n.Ref.Vault, p.snap.Names)
			if r.Found {
				continue
			}
			if !r.VaultKnown {
				p.logger.Warn("doctor: link names an unknown vault",
					slog.String("note", n.Ref.String()),
					slog.String("link", l.Raw))
				continue
			}
			if !validFname(r.Target.Fname) {
				p.logger.Warn("doctor: link target is not a valid note name",
					slog.String("note", n.Ref.String()),
					slog.String("link", l.Raw))
				continue
			}
			if _, ok := planned[r.Target]; ok {
				continue
			}
			planned[r.Target] = struct{}{}
			plan.Items = append(plan.Items, Item{Kind: CreateStub, Ref: r.Target, ID: p.next(), Cause: n.Ref.String()})
		}
	}
	return plan
}

func (p *planner) regenerateIDs(scope []*Note) Plan {
	plan := Plan{Items: make([]Item, 0, len(scope))}
	for _, n := range scope {
		plan.Items = append(plan.Items, Item{Kind: ReassignID, Ref: n.Ref, ID: p.next()})
	}
	return plan
}

func (p *planner) next() string { return p.gen.Next(p.used) }

// validFname rejects names that would place a note outside its vault
// directory or hide it from listings.
func validFname(fname string) bool {
	return !strings.ContainsAny(fname, `/\`) && !strings.HasPrefix(fname, ".")
}
