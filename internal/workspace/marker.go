package workspace

import (
	"errors"
	"fmt"
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MarkerFile names the file that marks a workspace root.
const MarkerFile = "hagal.yml"

// Marker is the decoded workspace marker file.
type Marker struct {
	Vaults []VaultEntry `yaml:"vaults"`
	// Ignore holds doublestar patterns, matched against vault-relative note
	// paths, for notes every vault should skip.
	Ignore []string `yaml:"ignore"`
}

// VaultEntry declares one vault.
type VaultEntry struct {
	FSPath string `yaml:"fsPath"`
	// Name defaults to the last element of FSPath.
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
	// Ignore adds patterns for this vault only.
	Ignore []string `yaml:"ignore"`
}

// Validate normalises vault names and checks the declared vaults.
func (m *Marker) Validate() error {
	if err := validation.ValidateStruct(m,
		validation.Field(&m.Vaults, validation.Required.Error("at least one vault is required")),
	); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(m.Vaults))
	for i := range m.Vaults {
		v := &m.Vaults[i]
		if err := v.Validate(); err != nil {
			return fmt.Errorf("vault %d: %w", i, err)
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("vault %q declared twice", v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	return nil
}

// Validate fills the default name and checks the entry.
func (v *VaultEntry) Validate() error {
	v.FSPath = path.Clean(strings.ReplaceAll(v.FSPath, "\\", "/"))
	if v.Name == "" && v.FSPath != "." {
		v.Name = path.Base(v.FSPath)
	}
	return validation.ValidateStruct(v,
		validation.Field(&v.FSPath, validation.Required, validation.By(relativeInside)),
		validation.Field(&v.Name, validation.Required, validation.By(noSlash)),
	)
}

func relativeInside(value any) error {
	p, _ := value.(string)
	if path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../") {
		return errors.New("must stay inside the workspace root")
	}
	return nil
}

func noSlash(value any) error {
	s, _ := value.(string)
	if strings.Contains(s, "/") {
		return errors.New("must not contain a slash")
	}
	return nil
}
