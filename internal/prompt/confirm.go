// Package prompt asks for confirmation on a terminal and renders doctor
// output for humans.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/starford/hagal/internal/doctor"
)

// Terminal is a doctor.Confirmer that shows the preview and reads a y/N
// answer. Without a terminal it declines unless AssumeYes is set.
type Terminal struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool
	AssumeYes   bool
}

// NewTerminal returns a Terminal on the process stdin and stdout.
func NewTerminal(assumeYes bool) *Terminal {
	return &Terminal{
		In:          os.Stdin,
		Out:         os.Stdout,
		Interactive: isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd()),
		AssumeYes:   assumeYes,
	}
}

var _ doctor.Confirmer = (*Terminal)(nil)

func (t *Terminal) Confirm(_ context.Context, p doctor.Preview) (bool, error) {
	fmt.Fprint(t.Out, RenderPreview(p))
	if t.AssumeYes {
		return true, nil
	}
	if !t.Interactive {
		fmt.Fprintln(t.Out, Muted.Render("not a terminal; pass --yes to apply"))
		return false, nil
	}
	fmt.Fprintf(t.Out, "Apply %d repairs? %s ", len(p.Plan.Items), Muted.Render("[y/N]"))
	response, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("prompt: read answer: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
