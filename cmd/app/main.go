package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/origincreativegroup/folio/internal"
	pkgconfig "github.com/origincreativegroup/folio/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) && !cmd.IsSet("config") {
			// No config file is fine for local use, defaults apply.
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.SyncOnce(ctx, cfg, cmd.String("project"))
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	zipPath := cmd.Args().First()
	if zipPath == "" {
		return fmt.Errorf("usage: folio import <archive.zip>")
	}
	return internal.ImportArchive(ctx, cfg, zipPath)
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	folder := cmd.Args().First()
	if folder == "" {
		return fmt.Errorf("usage: folio export <folder>")
	}
	return internal.ExportArchive(ctx, cfg, folder, cmd.String("out"))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, cfg)
}

func main() {
	cmd := &cli.Command{
		Name:  "folio",
		Usage: "Filesystem-first portfolio catalog with sync, archive import/export, and an MCP surface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and SSE event stream",
				Action: runServe,
			},
			{
				Name:  "sync",
				Usage: "Reconcile the catalog against the studio and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "project",
						Usage: "Sync a single project folder",
					},
				},
				Action: runSync,
			},
			{
				Name:      "import",
				Usage:     "Import project folders from a zip archive",
				ArgsUsage: "<archive.zip>",
				Action:    runImport,
			},
			{
				Name:      "export",
				Usage:     "Export one project folder as a zip archive",
				ArgsUsage: "<folder>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output path for the archive",
					},
				},
				Action: runExport,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tool surface on stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
