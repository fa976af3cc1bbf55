package prompt

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/starford/hagal/internal/doctor"
)

// EditorInventory lists installed extensions by running the editor's
// command line with --list-extensions.
type EditorInventory struct {
	Command string
}

var _ doctor.Inventory = EditorInventory{}

func (e EditorInventory) Installed(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, e.Command, "--list-extensions").Output()
	if err != nil {
		return nil, fmt.Errorf("prompt: list extensions with %s: %w", e.Command, err)
	}
	return parseExtensionList(out), nil
}

func parseExtensionList(out []byte) []string {
	ids := []string{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		// Newer editors print "id@version" with --show-versions.
		line, _, _ = strings.Cut(line, "@")
		if line != "" {
			ids = append(ids, line)
		}
	}
	return ids
}
