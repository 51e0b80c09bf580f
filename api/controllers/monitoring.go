package controllers

import (
	"net/http"

	"github.com/roomdang/roomdang-backend/api/responses"
	"github.com/roomdang/roomdang-backend/internal/alarms"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
)

// SSEConnectionCount exposes the live connection table size for operators.
func SSEConnectionCount(dispatcher *alarms.Dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dispatcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatcher unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]int{"activeConnections": dispatcher.ActiveConnectionCount()})
	}
}
