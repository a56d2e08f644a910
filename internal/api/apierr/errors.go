package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/stockgame/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes. Clients branch on these; they never change meaning.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidQuantity      = "INVALID_QUANTITY"
	CodeInvalidPlayer        = "INVALID_PLAYER"
	CodeInvalidStock         = "INVALID_STOCK"
	CodeInvalidPage          = "INVALID_PAGE"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeStockNotFound        = "STOCK_NOT_FOUND"
	CodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	CodeInsufficientQuantity = "INSUFFICIENT_QUANTITY"
	CodeDuplicatePlayer      = "DUPLICATE_PLAYER"
	CodeDuplicateStockName   = "DUPLICATE_STOCK_NAME"
	CodeStockInUse           = "STOCK_IN_USE"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeTokenMissing         = "TOKEN_MISSING"
	CodeTokenInvalid         = "TOKEN_INVALID"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeForbidden            = "FORBIDDEN"
	CodeAccountBusy          = "ACCOUNT_BUSY"
	CodeConcurrentUpdate     = "CONCURRENT_UPDATE"
	CodeNotFound             = "NOT_FOUND"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error is reported with
func Status(err error) int {
	return toHTTPError(err).status
}

// mapping pairs each domain error with its status and code. Validation
// errors carry detail in their wrapped message, so their message is
// passed through; the others use a fixed message.
var mapping = []struct {
	err         error
	status      int
	code        string
	passMessage bool
}{
	{model.ErrInvalidQuantity, http.StatusBadRequest, CodeInvalidQuantity, false},
	{model.ErrInvalidPlayer, http.StatusBadRequest, CodeInvalidPlayer, true},
	{model.ErrInvalidStock, http.StatusBadRequest, CodeInvalidStock, true},
	{model.ErrInvalidPage, http.StatusBadRequest, CodeInvalidPage, false},
	{model.ErrPlayerNotFound, http.StatusNotFound, CodePlayerNotFound, false},
	{model.ErrStockNotFound, http.StatusNotFound, CodeStockNotFound, false},
	{model.ErrInsufficientFunds, http.StatusUnprocessableEntity, CodeInsufficientFunds, false},
	{model.ErrInsufficientQuantity, http.StatusUnprocessableEntity, CodeInsufficientQuantity, false},
	{model.ErrDuplicatePlayer, http.StatusConflict, CodeDuplicatePlayer, false},
	{model.ErrDuplicateStockName, http.StatusConflict, CodeDuplicateStockName, false},
	{model.ErrStockInUse, http.StatusConflict, CodeStockInUse, false},
	{model.ErrAuthenticationFailed, http.StatusUnauthorized, CodeAuthenticationFailed, false},
	{model.ErrTokenMissing, http.StatusUnauthorized, CodeTokenMissing, false},
	{model.ErrTokenInvalid, http.StatusUnauthorized, CodeTokenInvalid, false},
	{model.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired, false},
	{model.ErrForbidden, http.StatusForbidden, CodeForbidden, false},
	{model.ErrAccountBusy, http.StatusServiceUnavailable, CodeAccountBusy, false},
	{model.ErrConcurrentUpdate, http.StatusConflict, CodeConcurrentUpdate, false},
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	for _, m := range mapping {
		if errors.Is(err, m.err) {
			message := m.err.Error()
			if m.passMessage {
				message = err.Error()
			}
			return &httpError{m.status, APIError{m.code, message}}
		}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewNotFoundError reports an unknown route
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}
}

// NewMethodNotAllowedError reports a known route hit with the wrong method
func NewMethodNotAllowedError() error {
	return &httpError{http.StatusMethodNotAllowed, APIError{CodeMethodNotAllowed, "Method not allowed"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
