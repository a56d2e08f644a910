package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/stockgame/internal/api/apierr"
	"github.com/mcoot/stockgame/internal/middleware"
)

// Standard wraps the whole API. Recovery sits inside logging so a
// recovered panic is logged with its request ID and a 500 status.
func Standard(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	recovery := middleware.Recovery(logger, apiPanicHandler)
	logging := middleware.Logging(logger)
	return func(next http.Handler) http.Handler {
		return logging(recovery(next))
	}
}

// apiPanicHandler answers every panic, ledger invariant violations
// included, with an opaque internal error
func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
