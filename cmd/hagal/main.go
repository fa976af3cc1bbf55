package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/hagal/internal"
	"github.com/starford/hagal/internal/doctor"
	pkgconfig "github.com/starford/hagal/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("workspace"); root != "" {
		cfg.Workspace.Root = root
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runDoctor(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunDoctor(ctx, internal.DoctorParams{
		Action:    cmd.String("action"),
		Scope:     cmd.String("scope"),
		Note:      cmd.String("note"),
		Installed: cmd.StringSlice("installed"),
		AssumeYes: cmd.Bool("yes"),
		JSON:      cmd.Bool("json"),
	}, internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:  "hagal",
		Usage: "Consistency checks and repairs for multi-vault Markdown note workspaces",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "workspace",
				Aliases: []string{"w"},
				Usage:   "Workspace root (default: discovered from the working directory)",
				Sources: cli.EnvVars("HAGAL_WORKSPACE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "doctor",
				Usage:  "Check and repair notes",
				Action: runDoctor,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "action",
						Aliases:  []string{"a"},
						Usage:    fmt.Sprintf("One of %v", doctor.ActionNames),
						Required: true,
					},
					&cli.StringFlag{
						Name:  "scope",
						Usage: "workspace or file",
						Value: "workspace",
					},
					&cli.StringFlag{
						Name:  "note",
						Usage: "Note for file scope, as vault/fname",
					},
					&cli.StringSliceFlag{
						Name:  "installed",
						Usage: "Installed extension ids (default: ask the editor)",
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Apply without asking",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the summary as JSON",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live index updates",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
