package doctor

import "encoding/json"

// Failure is one repair that could not be written.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RepairSummary reports what a repair run did. Paths are relative to the
// workspace root.
type RepairSummary struct {
	Created   []string  `json:"created"`
	Rewritten []string  `json:"rewritten"`
	Skipped   []string  `json:"skipped"`
	Failed    []Failure `json:"failed"`
}

func newRepairSummary() *RepairSummary {
	return &RepairSummary{
		Created:   []string{},
		Rewritten: []string{},
		Skipped:   []string{},
		Failed:    []Failure{},
	}
}

// InstallStatus reports whether one denylisted extension is installed.
type InstallStatus struct {
	ID        string `json:"id"`
	Installed bool   `json:"installed"`
}

// ExtensionReport is the outcome of find-incompatible-extensions.
type ExtensionReport struct {
	InstallStatus []InstallStatus `json:"installStatus"`
}

// Result is what Run returns. Exactly one of Repair and Extensions is set.
type Result struct {
	Action string
	Scope  Scope
	// Applied is false when the plan was empty or confirmation was declined.
	Applied    bool
	Plan       Plan
	Repair     *RepairSummary
	Extensions *ExtensionReport
}

// MarshalJSON emits the bare summary shape of the action.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Extensions != nil {
		return json.Marshal(r.Extensions)
	}
	if r.Repair == nil {
		return json.Marshal(newRepairSummary())
	}
	return json.Marshal(r.Repair)
}

// Preview is what a Confirmer is shown before anything is written.
type Preview struct {
	Action     string           `json:"action"`
	Scope      string           `json:"scope"`
	Plan       Plan             `json:"plan"`
	Paths      []string         `json:"paths"`
	Extensions *ExtensionReport `json:"extensions,omitempty"`
}
