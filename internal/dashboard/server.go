package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/taskboard/internal/access"
	"github.com/zulandar/taskboard/internal/board"
	"github.com/zulandar/taskboard/internal/config"
	"github.com/zulandar/taskboard/internal/i18n"
	"github.com/zulandar/taskboard/internal/issue"
	"github.com/zulandar/taskboard/internal/options"
	"github.com/zulandar/taskboard/internal/session"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	DB       *gorm.DB
	Config   *config.Config
	Sessions session.Store
	Port     int
	Out      io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("dashboard: db is required")
	}
	if opts.Sessions == nil {
		return fmt.Errorf("dashboard: session store is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Port <= 0 {
		opts.Port = cfg.Server.Port
	}

	deps, err := NewDeps(opts.DB, opts.Sessions, cfg)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(deps)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("dashboard shutdown")
		}
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d%s/projects/<project>/rdb\n", opts.Port, cfg.Server.BasePath)
	}
	log.WithFields(log.Fields{"port": opts.Port, "boards": deps.Boards.Registry().Kinds()}).Info("dashboard listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// NewDeps wires the gorm-backed collaborators for cfg.
func NewDeps(db *gorm.DB, sessions session.Store, cfg *config.Config) (Deps, error) {
	catalog, err := i18n.New(cfg.Locale)
	if err != nil {
		return Deps{}, fmt.Errorf("dashboard: %w", err)
	}
	issues := issue.NewStore(db)
	registry := board.DefaultRegistry(issues).Enabled(cfg.Boards.Enabled)
	return Deps{
		Projects:    access.NewProjects(db),
		Users:       access.NewUsers(db),
		Auth:        access.NewAuthorizer(db),
		Issues:      issues,
		Revisions:   issues,
		Boards:      board.NewSession(registry, options.NewStore(sessions)),
		Catalog:     catalog,
		DefaultKind: board.Kind(cfg.Boards.Default),
		BasePath:    cfg.Server.BasePath,
	}, nil
}
