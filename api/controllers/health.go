package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/floorops-backend/api/responses"
	"github.com/angelmondragon/floorops-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency the API cannot serve without.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FloorOps-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently and reports each result.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FloorOps-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			checks = make(map[string]string, len(deps))
		)
		g, gctx := errgroup.WithContext(ctx)
		for name, dep := range deps {
			g.Go(func() error {
				status := "ok"
				err := dep.Ping(gctx)
				if err != nil {
					status = "unavailable"
				}
				mu.Lock()
				checks[name] = status
				mu.Unlock()
				return err
			})
		}
		if err := g.Wait(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "dependency unavailable").
				WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
