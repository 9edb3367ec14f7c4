package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Rule-driven storefront catalog service",
	Long: `storefront classifies catalog products into rule-defined shops and serves
cached category listings.

Run "storefront serve" to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = applog.Sync()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, reassignCmd, categoriesCmd, hashKeyCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg  config.Config
	db   *sqlx.DB
	deps *handlers.Deps
	file *os.File
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = applog.Sync()
	if a.file != nil {
		_ = a.file.Close()
	}
}

// setup loads config, tees the log into LOG_FILE, opens the store and wires
// the services.
func setup() (*app, error) {
	cfg := config.Load()
	a := &app{cfg: cfg}

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			applog.Error(nil, "log.file.open.fail", err, map[string]any{"path": cfg.LogFile})
		} else {
			a.file = f
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db

	if cfg.ShopsFile != "" {
		shops, err := repos.LoadShopsFile(cfg.ShopsFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("shops file: %w", err)
		}
		n, err := repos.NewShopRepo(db).InsertMissing(shops)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("seed shops: %w", err)
		}
		applog.Info(nil, "seed.shops", map[string]any{"file": cfg.ShopsFile, "inserted": n})
	}

	a.deps = handlers.NewDeps(db, cfg)
	return a, nil
}
