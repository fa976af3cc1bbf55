package doctor

import (
	"fmt"
	"strings"
)

// IncompatibleExtensions are editor extensions known to conflict with
// hagal's link and preview handling.
var IncompatibleExtensions = []string{
	"yzhang.markdown-all-in-one",
	"foam.foam-vscode",
	"tchayen.markdown-links",
	"svsool.markdown-memo",
	"thomaskoppelaar.markdown-wiki-links-preview",
	"yzane.markdown-pdf",
	"kortina.vscode-markdown-notes",
	"mdickin.markdown-shortcuts",
	"ms-vscode.wordcount",
	"shd101wyy.markdown-preview-enhanced",
}

const marketplaceURL = "https://marketplace.visualstudio.com/items?itemName="

// checkExtensions reports each denylist entry in denylist order.
func checkExtensions(installed []string) *ExtensionReport {
	have := make(map[string]struct{}, len(installed))
	for _, id := range installed {
		have[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}
	report := &ExtensionReport{InstallStatus: make([]InstallStatus, 0, len(IncompatibleExtensions))}
	for _, id := range IncompatibleExtensions {
		_, ok := have[strings.ToLower(id)]
		report.InstallStatus = append(report.InstallStatus, InstallStatus{ID: id, Installed: ok})
	}
	return report
}

// Markdown renders the report as a markdown document.
func (r *ExtensionReport) Markdown() string {
	var b strings.Builder
	b.WriteString("# Incompatible Extensions\n\n")
	for _, s := range r.InstallStatus {
		fmt.Fprintf(&b, "## %s\n\n", s.ID)
		if s.Installed {
			fmt.Fprintf(&b, "- Installed [View Extension](%s%s)\n\n", marketplaceURL, s.ID)
		} else {
			b.WriteString("- Not Installed\n\n")
		}
	}
	return b.String()
}
