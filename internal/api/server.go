// Package api serves render contexts and plan windows over HTTP so a
// capture driver can query frames without linking the timeline.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ivlev/scenescript/internal/db"
	"github.com/ivlev/scenescript/internal/plan"
	"github.com/ivlev/scenescript/internal/timeline"
)

// ErrStalePlan means the latest stored plan was built from a different
// version of the script.
var ErrStalePlan = errors.New("stored plan is out of date")

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// RouterConfig carries everything the handlers read. Store and PlanID are
// optional; without them /plan is computed from the timeline.
type RouterConfig struct {
	Port      int
	Timeline  *timeline.Timeline
	Context   timeline.Options
	Store     *db.PlanStore
	PlanID    int64
	Logger    *slog.Logger
	StartTime time.Time
	Version   string
}

// UseStoredPlan points cfg at the latest plan stored for the timeline's
// script. cfg is left unchanged when no plan exists (db.ErrNotFound) or
// when the stored plan no longer matches the script (ErrStalePlan).
func UseStoredPlan(ctx context.Context, cfg *RouterConfig, store *db.PlanStore) (*db.StoredPlan, error) {
	s := cfg.Timeline.Script()
	sum, err := plan.Summarize(s)
	if err != nil {
		return nil, err
	}
	stored, err := store.Latest(ctx, s.Source())
	if err != nil {
		return nil, err
	}
	if !stored.Matches(sum) {
		return stored, ErrStalePlan
	}
	cfg.Store = store
	cfg.PlanID = stored.ID
	return stored, nil
}

func NewServer(cfg RouterConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
