package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/spf13/cobra"

	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/task"
)

var (
	templatesDir string
	noScheduler  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the background scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()
		return serve(cmd.Context(), a)
	},
}

func init() {
	serveCmd.Flags().StringVar(&templatesDir, "templates", "./web/templates", "HTML template directory")
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "disable the nightly reassignment and cache warm jobs")
}

func serve(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := html.New(templatesDir, ".html")
	srv := fiber.New(fiber.Config{
		Views:                 engine,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: true,
	})
	// Global body size guard
	srv.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	srv.Use(requestid.New())
	srv.Use(logger.New())
	srv.Use(helmet.New())
	srv.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/healthz" || strings.HasPrefix(p, "/metrics")
		},
	}))
	handlers.Register(srv, a.deps)

	if err := metrics.RegisterCache("categories", a.deps.Categories.Stats); err != nil {
		applog.Error(nil, "metrics.register.fail", err, nil)
	}

	var sched *task.Scheduler
	if !noScheduler {
		sched = task.NewScheduler(a.deps.Assign, a.deps.Categories, task.Config{
			ReassignSchedule: a.cfg.ReassignSchedule,
			WarmSchedule:     a.cfg.WarmSchedule,
			RunOnStart:       true,
		})
		if err := sched.Start(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		applog.Info(nil, "server.listen", map[string]any{"port": a.cfg.Port})
		errCh <- srv.Listen(":" + a.cfg.Port)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		applog.Info(nil, "server.shutdown", nil)
	case runErr = <-errCh:
	}

	if err := srv.ShutdownWithTimeout(10 * time.Second); err != nil && runErr == nil {
		runErr = err
	}
	if sched != nil {
		sched.Stop()
	} else {
		a.deps.Categories.Wait()
	}
	return runErr
}
