package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/stockgame/internal/api/middleware"
	"github.com/mcoot/stockgame/internal/api/request"
	"github.com/mcoot/stockgame/internal/api/response"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/account"
	"github.com/mcoot/stockgame/internal/services/auth"
	"github.com/mcoot/stockgame/internal/services/ledger"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	accounts    *account.Service
	ledger      *ledger.Ledger
	authService *auth.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(accounts *account.Service, ledger *ledger.Ledger, authService *auth.Service) *PlayerHandler {
	return &PlayerHandler{
		accounts:    accounts,
		ledger:      ledger,
		authService: authService,
	}
}

// Register handles POST /api/v1/players
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	player, err := h.accounts.Register(r.Context(), model.PlayerID(req.PlayerID), req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(player))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	if req.PlayerID == "" {
		WriteError(w, NewInvalidRequestError("playerId is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Login(r.Context(), model.PlayerID(req.PlayerID), req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.accounts.Get(r.Context(), session.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(player, session))
}

// List handles GET /api/v1/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	players, err := h.accounts.List(r.Context(), page)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayersFromModel(players))
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	h.writePortfolio(w, r, middleware.MustGetPlayerID(r.Context()))
}

// Get handles GET /api/v1/players/{playerId}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writePortfolio(w, r, model.PlayerID(mux.Vars(r)["playerId"]))
}

func (h *PlayerHandler) writePortfolio(w http.ResponseWriter, r *http.Request, playerID model.PlayerID) {
	portfolio, err := h.ledger.Portfolio(r.Context(), playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PortfolioFromModel(portfolio))
}

// Update handles PUT /api/v1/players/{playerId}
func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.self(w, r)
	if !ok {
		return
	}

	var req request.UpdatePlayerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Balance == nil {
		WriteError(w, NewInvalidRequestError("balance is required"))
		return
	}

	player, err := h.accounts.UpdateBalance(r.Context(), playerID, *req.Balance)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// Delete handles DELETE /api/v1/players/{playerId}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.self(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Delete(r.Context(), playerID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// self returns the path player ID if it is the authenticated player
func (h *PlayerHandler) self(w http.ResponseWriter, r *http.Request) (model.PlayerID, bool) {
	playerID := model.PlayerID(mux.Vars(r)["playerId"])
	if playerID != middleware.MustGetPlayerID(r.Context()) {
		WriteError(w, model.ErrForbidden)
		return "", false
	}
	return playerID, true
}
