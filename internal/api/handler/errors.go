package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mcoot/stockgame/internal/api/apierr"
	"github.com/mcoot/stockgame/internal/model"
)

// Re-export for convenience
var (
	WriteError             = apierr.WriteError
	NewInvalidRequestError = apierr.NewInvalidRequestError
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 16

// decode reads a JSON body into v, rejecting unknown fields
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return false
	}
	return true
}

// parsePage reads offset and count query parameters, defaulting to the
// first page
func parsePage(r *http.Request) (model.Page, error) {
	page := model.DefaultPage()
	q := r.URL.Query()
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, NewInvalidRequestError("offset must be an integer")
		}
		page.Offset = n
	}
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, NewInvalidRequestError("count must be an integer")
		}
		page.Count = n
	}
	return page, nil
}
