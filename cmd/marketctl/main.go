package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/marketlens/backend-go/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "marketctl",
		Usage: "Administer the marketlens database: migrations, uploads and rollups",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Database connection string (overrides DB_* settings)",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			migrateCommand(),
			rollupCommand(),
			ingestCommand(),
			driveImportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("marketctl failed")
	}
}
