package prompt

import (
	"fmt"
	"strings"

	"github.com/starford/hagal/internal/doctor"
)

// RenderPreview describes a plan before it is applied.
func RenderPreview(p doctor.Preview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Bold.Render("doctor "+p.Action), Muted.Render("("+p.Scope+" scope)"))
	if p.Extensions != nil {
		b.WriteString(RenderExtensions(p.Extensions))
		return b.String()
	}
	if len(p.Plan.Items) == 0 {
		b.WriteString(Muted.Render("nothing to do") + "\n")
		return b.String()
	}
	for i, it := range p.Plan.Items {
		path := it.Ref.String()
		if i < len(p.Paths) {
			path = p.Paths[i]
		}
		line := fmt.Sprintf("  %-13s %s %s", it.Kind, Accent.Render(path), Muted.Render("id="+it.ID))
		if it.Cause != "" {
			line += Muted.Render(" (" + it.Cause + ")")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RenderSummary describes the outcome of a run.
func RenderSummary(res doctor.Result) string {
	if res.Extensions != nil {
		return RenderExtensions(res.Extensions)
	}
	var b strings.Builder
	if !res.Applied {
		b.WriteString(Muted.Render("no changes applied") + "\n")
		return b.String()
	}
	section := func(title string, paths []string) {
		if len(paths) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s (%d)\n", Bold.Render(title), len(paths))
		for _, p := range paths {
			b.WriteString("  " + Accent.Render(p) + "\n")
		}
	}
	section("created", res.Repair.Created)
	section("rewritten", res.Repair.Rewritten)
	section("skipped", res.Repair.Skipped)
	if len(res.Repair.Failed) > 0 {
		fmt.Fprintf(&b, "%s (%d)\n", Bold.Render("failed"), len(res.Repair.Failed))
		for _, f := range res.Repair.Failed {
			fmt.Fprintf(&b, "  ✗ %s %s\n", Accent.Render(f.Path), Muted.Render(f.Reason))
		}
	}
	return b.String()
}

// RenderExtensions lists every denylisted extension with its status.
func RenderExtensions(r *doctor.ExtensionReport) string {
	var b strings.Builder
	for _, s := range r.InstallStatus {
		status := Muted.Render("Not Installed")
		if s.Installed {
			status = Bold.Render("Installed")
		}
		fmt.Fprintf(&b, "  %s %s\n", Accent.Render(s.ID), status)
	}
	return b.String()
}
