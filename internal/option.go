package internal

import (
	"io"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	// workDir is where workspace discovery starts when no root is configured.
	workDir string
	stdout  io.Writer
	stderr  io.Writer
}

func newApplication(opts []Option) *application {
	app := &application{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithWorkDir sets the directory workspace discovery starts from.
func WithWorkDir(dir string) Option {
	return func(a *application) {
		a.workDir = dir
	}
}

// WithOutput redirects command output and log output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdout = stdout
		a.stderr = stderr
	}
}
