package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/stockgame/internal/api/request"
	"github.com/mcoot/stockgame/internal/api/response"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/catalog"
)

// StockHandler handles catalog endpoints
type StockHandler struct {
	catalog *catalog.Service
}

// NewStockHandler creates a new stock handler
func NewStockHandler(catalog *catalog.Service) *StockHandler {
	return &StockHandler{catalog: catalog}
}

// List handles GET /api/v1/stocks
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	stocks, err := h.catalog.List(r.Context(), page)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StocksFromModel(stocks))
}

// Get handles GET /api/v1/stocks/{stockId}
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	stock, err := h.catalog.Get(r.Context(), stockID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StockFromModel(stock))
}

// Create handles POST /api/v1/stocks
func (h *StockHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStock(w, r)
	if !ok {
		return
	}

	stock, err := h.catalog.Create(r.Context(), req.Name, *req.Price)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.StockFromModel(stock))
}

// Update handles PUT /api/v1/stocks/{stockId}
func (h *StockHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStock(w, r)
	if !ok {
		return
	}

	stock, err := h.catalog.Update(r.Context(), stockID(r), req.Name, *req.Price)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StockFromModel(stock))
}

// Delete handles DELETE /api/v1/stocks/{stockId}
func (h *StockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), stockID(r)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

func stockID(r *http.Request) model.StockID {
	return model.StockID(mux.Vars(r)["stockId"])
}

func decodeStock(w http.ResponseWriter, r *http.Request) (request.StockRequest, bool) {
	var req request.StockRequest
	if !decode(w, r, &req) {
		return req, false
	}
	if req.Price == nil {
		WriteError(w, NewInvalidRequestError("price is required"))
		return req, false
	}
	return req, true
}
