package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/marketlens/backend-go/internal/app"
	"github.com/andresuchdata/marketlens/backend-go/internal/config"
	"github.com/andresuchdata/marketlens/backend-go/internal/drive"
	"github.com/andresuchdata/marketlens/backend-go/internal/ingest"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
	"github.com/andresuchdata/marketlens/backend-go/pkg/logger"
)

func workspaceFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "workspace",
		Aliases: []string{"w"},
		Usage:   "Workspace slug",
		Value:   service.DefaultWorkspace,
	}
}

func kindFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "kind",
		Usage:    "Report kind: sales, returns, catalog, stock, myntra-weekly-perf, flipkart-events, flipkart-listing, flipkart-traffic",
		Required: true,
	}
}

func replaceFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "replace",
		Usage: "Delete the workspace's existing rows for this report kind first",
	}
}

// loadConfig applies the global --db-url override.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()
	if url := c.String("db-url"); url != "" {
		cfg.Database.URL = url
	}
	return cfg
}

func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg := loadConfig(c)
	a, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(c.Context, a)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or roll back the schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(c *cli.Context) error {
					return app.Migrate(loadConfig(c), true)
				},
			},
			{
				Name:  "down",
				Usage: "Roll back every migration (drops all data)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Confirm the rollback"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return fmt.Errorf("refusing to roll back without --yes")
					}
					return app.Migrate(loadConfig(c), false)
				},
			},
		},
	}
}

func rollupCommand() *cli.Command {
	return &cli.Command{
		Name:  "rollup",
		Usage: "Maintain the style_monthly rollup",
		Subcommands: []*cli.Command{
			{
				Name:  "refresh",
				Usage: "Recompute months (YYYY-MM) or, with --full, every month",
				Flags: []cli.Flag{
					workspaceFlag(),
					&cli.StringSliceFlag{Name: "months", Usage: "Months to rebuild, e.g. --months 2025-01,2025-02"},
					&cli.BoolFlag{Name: "full", Usage: "Rebuild the whole workspace"},
				},
				Action: func(c *cli.Context) error {
					return withApp(c, func(ctx context.Context, a *app.App) error {
						res, err := a.Rollups.Refresh(ctx, c.String("workspace"), splitList(c.StringSlice("months")), c.Bool("full"))
						if err != nil {
							return err
						}
						logger.Log.Info().
							Str("workspace", res.WorkspaceSlug).
							Strs("months", res.MonthsRefreshed).
							Bool("full", res.FullRefresh).
							Int64("rows", res.Rows).
							Msg("rollup refreshed")
						return nil
					})
				},
			},
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Load a report file from disk",
		Flags: []cli.Flag{
			workspaceFlag(),
			kindFlag(),
			replaceFlag(),
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "CSV or XLSX report", Required: true},
		},
		Action: func(c *cli.Context) error {
			kind, err := ingest.ParseKind(c.String("kind"))
			if err != nil {
				return err
			}
			path := c.String("file")
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			return withApp(c, func(ctx context.Context, a *app.App) error {
				res, err := a.Ingest.Ingest(ctx, service.IngestRequest{
					Kind:          kind,
					WorkspaceSlug: c.String("workspace"),
					Filename:      filepath.Base(path),
					Data:          data,
					Replace:       c.Bool("replace"),
				})
				if err != nil {
					return err
				}
				logResult(res)
				return nil
			})
		},
	}
}

func driveImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "drive-import",
		Usage: "Load every report in a Google Drive folder, oldest first",
		Flags: []cli.Flag{
			workspaceFlag(),
			kindFlag(),
			&cli.StringFlag{Name: "folder", Usage: "Drive folder id or path such as Reports/Myntra/Sales", Required: true},
			&cli.StringFlag{
				Name:    "credentials",
				Usage:   "Service account key file",
				EnvVars: []string{"DRIVE_CREDENTIALS_FILE"},
			},
			&cli.BoolFlag{
				Name:  "replace-first",
				Usage: "Replace existing rows with the first file, then append the rest",
			},
		},
		Action: func(c *cli.Context) error {
			kind, err := ingest.ParseKind(c.String("kind"))
			if err != nil {
				return err
			}

			credentialsFile := c.String("credentials")
			if credentialsFile == "" {
				credentialsFile = loadConfig(c).Drive.CredentialsFile
			}
			if credentialsFile == "" {
				return fmt.Errorf("drive credentials are required (--credentials or DRIVE_CREDENTIALS_FILE)")
			}
			creds, err := os.ReadFile(credentialsFile)
			if err != nil {
				return fmt.Errorf("failed to read drive credentials: %w", err)
			}

			src, err := drive.NewService(c.Context, creds)
			if err != nil {
				return err
			}

			return withApp(c, func(ctx context.Context, a *app.App) error {
				replace := c.Bool("replace-first")
				n, err := drive.NewImporter(src).Import(ctx, c.String("folder"), func(ctx context.Context, name string, data []byte) error {
					res, err := a.Ingest.Ingest(ctx, service.IngestRequest{
						Kind:          kind,
						WorkspaceSlug: c.String("workspace"),
						Filename:      name,
						Data:          data,
						Replace:       replace,
					})
					if err != nil {
						return err
					}
					replace = false
					logResult(res)
					return nil
				})
				if err != nil {
					return err
				}
				logger.Log.Info().Int("files", n).Msg("drive import finished")
				return nil
			})
		},
	}
}

func logResult(res *service.IngestResult) {
	logger.Log.Info().
		Str("workspace", res.WorkspaceSlug).
		Str("kind", string(res.Kind)).
		Int("rows_in_file", res.RowsInFile).
		Int64("inserted", res.Inserted).
		Int("skipped", res.Skipped).
		Strs("months", res.MonthsRefreshed).
		Str("archived_key", res.ArchivedKey).
		Msg("ingested")
}

// splitList flattens repeated and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
