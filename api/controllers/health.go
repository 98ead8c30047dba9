package controllers

import (
	"context"
	"net/http"

	"go.uber.org/multierr"

	"github.com/tradeforgehq/tradeforge-backend/api/responses"
	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
	"github.com/tradeforgehq/tradeforge-backend/pkg/logger"
)

// Pinger is the health-check surface of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TradeForge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency and aggregates the failures so a
// single probe reports them all.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TradeForge-Env", cfg.App.Env)

		var failures error
		checked := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				checked[name] = "down"
				failures = multierr.Append(failures, err)
				continue
			}
			checked[name] = "up"
		}

		if failures != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, failures, "readiness check").WithDetails(checked))
			return
		}

		payload := map[string]any{"status": "ready"}
		if len(checked) > 0 {
			payload["dependencies"] = checked
		}
		responses.WriteSuccess(w, payload)
	}
}
