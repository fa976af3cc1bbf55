// Package resolver maps parsed links onto the workspace note namespace.
package resolver

import (
	"github.com/starford/hagal/internal/links"
	"github.com/starford/hagal/internal/models"
)

// Namespace is the read-only view of vaults and notes a link resolves against.
type Namespace interface {
	HasVault(name string) bool
	HasNote(vault, fname string) bool
}

// Resolved pairs a link with its target address and the lookup outcome.
type Resolved struct {
	Link links.Link
	// Target is where the link points: the named vault for qualified links,
	// the containing vault otherwise.
	Target models.NoteRef
	// Found is true when a note exists at Target.
	Found bool
	// VaultKnown is false when a qualified link names a vault the workspace
	// does not have.
	VaultKnown bool
}

// Resolve resolves l written in a note of vault from. Unqualified links are
// only ever looked up in from; the match is exact and case-sensitive.
func Resolve(l links.Link, from string, ns Namespace) Resolved {
	target := models.NoteRef{Vault: from, Fname: l.Fname}
	if l.Qualified() {
		target.Vault = l.Vault
	}
	r := Resolved{Link: l, Target: target, VaultKnown: ns.HasVault(target.Vault)}
	if r.VaultKnown {
		r.Found = ns.HasNote(target.Vault, target.Fname)
	}
	return r
}

// Set is a map-backed Namespace.
type Set map[string]map[string]struct{}

// NewSet returns an empty Set.
func NewSet() Set { return Set{} }

// AddVault registers a vault with no notes.
func (s Set) AddVault(name string) {
	if _, ok := s[name]; !ok {
		s[name] = map[string]struct{}{}
	}
}

// Add registers a note, creating its vault if needed.
func (s Set) Add(vault, fname string) {
	s.AddVault(vault)
	s[vault][fname] = struct{}{}
}

func (s Set) HasVault(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) HasNote(vault, fname string) bool {
	_, ok := s[vault][fname]
	return ok
}
