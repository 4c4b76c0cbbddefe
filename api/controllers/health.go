package controllers

import (
	"net/http"

	"github.com/encamino/encamino-backend/api/responses"
	"github.com/encamino/encamino-backend/pkg/config"
	"github.com/encamino/encamino-backend/pkg/db"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
	"github.com/encamino/encamino-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Encamino-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Encamino-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				checks["database"] = "unreachable"
				healthy = false
				if logg != nil {
					logg.Warn(r.Context(), "database ping failed")
				}
			} else {
				checks["database"] = "ok"
			}
		}

		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				checks["redis"] = "unreachable"
				healthy = false
				if logg != nil {
					logg.Warn(r.Context(), "redis ping failed")
				}
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, checks)
	}
}
