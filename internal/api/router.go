package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/stockgame/internal/api/apierr"
	"github.com/mcoot/stockgame/internal/api/handler"
	"github.com/mcoot/stockgame/internal/api/middleware"
	"github.com/mcoot/stockgame/internal/services/account"
	"github.com/mcoot/stockgame/internal/services/auth"
	"github.com/mcoot/stockgame/internal/services/catalog"
	"github.com/mcoot/stockgame/internal/services/ledger"
	"github.com/mcoot/stockgame/internal/services/trade"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	AccountService *account.Service
	CatalogService *catalog.Service
	Ledger         *ledger.Ledger
	TradeEngine    *trade.Engine
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewMethodNotAllowedError())
	})

	r := mux.NewRouter()
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AccountService, cfg.Ledger, cfg.AuthService)
	stockHandler := handler.NewStockHandler(cfg.CatalogService)
	tradeHandler := handler.NewTradeHandler(cfg.TradeEngine)

	authMiddleware := middleware.Auth(cfg.AuthService)
	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	// Subrouters do not inherit these handlers
	api := r.PathPrefix("/api/v1").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed

	// Player routes. /players/me is registered before /players/{playerId}
	// so it is not captured as a player ID.
	api.HandleFunc("/players", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)
	api.Handle("/players/me", protected(playerHandler.GetMe)).Methods(http.MethodGet)
	api.HandleFunc("/players/{playerId}", playerHandler.Get).Methods(http.MethodGet)
	api.Handle("/players/{playerId}", protected(playerHandler.Update)).Methods(http.MethodPut)
	api.Handle("/players/{playerId}", protected(playerHandler.Delete)).Methods(http.MethodDelete)

	// Stock catalog routes; reads are public, changes need a session
	api.HandleFunc("/stocks", stockHandler.List).Methods(http.MethodGet)
	api.Handle("/stocks", protected(stockHandler.Create)).Methods(http.MethodPost)
	api.HandleFunc("/stocks/{stockId}", stockHandler.Get).Methods(http.MethodGet)
	api.Handle("/stocks/{stockId}", protected(stockHandler.Update)).Methods(http.MethodPut)
	api.Handle("/stocks/{stockId}", protected(stockHandler.Delete)).Methods(http.MethodDelete)

	// Trade routes (all require auth)
	api.Handle("/trades/buy", protected(tradeHandler.Buy)).Methods(http.MethodPost)
	api.Handle("/trades/sell", protected(tradeHandler.Sell)).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Wrap the whole router so unmatched routes are logged and get a
	// request ID too
	return middleware.Standard(cfg.Logger)(r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
