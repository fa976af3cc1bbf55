// Package models defines the domain types for hagal workspaces.
package models

import "path"

// Vault is a named, path-rooted container of notes.
type Vault struct {
	Name string `json:"name"`
	// FSPath is the vault directory relative to the workspace root.
	FSPath string `json:"fsPath"`
	// Group is the optional publishing group the vault belongs to.
	Group string `json:"group,omitempty"`
}

// NoteRef addresses a note by vault and fname.
type NoteRef struct {
	Vault string `json:"vault"`
	Fname string `json:"fname"`
}

// String renders the ref in its qualified link form.
func (r NoteRef) String() string {
	return LinkScheme + r.Vault + "/" + r.Fname
}

// LinkScheme prefixes vault-qualified link targets.
const LinkScheme = "dendron://"

// NoteFile is a note file found on disk by a vault listing.
type NoteFile struct {
	Fname string
	// Path is relative to the vault root, slash separated.
	Path string
}

// NotePath returns the vault-relative file path for fname.
func NotePath(fname string) string {
	return fname + ".md"
}

// WorkspacePath returns the slash-separated path of fname relative to the
// workspace root.
func WorkspacePath(v *Vault, fname string) string {
	return path.Join(v.FSPath, NotePath(fname))
}
