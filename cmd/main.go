package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"checkngo/internal/config"

	_ "checkngo/docs"
)

// @title Check 'n' Go API
// @version 1.0
// @description Catalog, store directory and checkout with optimistic stock decrement.
// @host localhost:9091
// @BasePath /api/v1
// @securityDefinitions.apikey AdminToken
// @in header
// @name Authorization
// @description Bearer <admin token>
func main() {
	app := &cli.App{
		Name:  "checkngo",
		Usage: "retail catalog and point-of-sale checkout service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Flags:  config.ServeFlags(),
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply schema migrations (sql) or create indexes (mongo), optionally seed demo data",
				Flags:  config.StoreFlags(),
				Action: migrateCmd,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		slog.Error("checkngo failed", "error", err)
		os.Exit(1)
	}
}
