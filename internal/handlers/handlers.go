package handlers

import (
	"net/http"

	"github.com/bxcodec/dbresolver/v2"

	"github.com/jmartynas/socials/respond"
)

// Health is a liveness probe: returns 200 if the process is running.
func Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready is a readiness probe. Without a database the service still logs
// users in, so a nil pool is ready.
func Ready(dbc dbresolver.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dbc != nil {
			if err := dbc.PingContext(r.Context()); err != nil {
				respond.JSON(w, r, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"reason": "database ping failed",
				})
				return
			}
		}
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
