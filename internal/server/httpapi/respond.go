package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/dmitrijs2005/nestwatch/internal/server/services"
	"github.com/go-playground/validator/v10"
)

var (
	errUnknownWhat = errors.New("unknown what parameter")
	errMissingID   = errors.New("missing id parameter")
	errBadBody     = errors.New("malformed request body")
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps err to a status code. Unexpected errors are logged and
// answered without detail.
func respondError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	var ve validator.ValidationErrors

	status := http.StatusInternalServerError
	msg := common.ErrorInternal.Error()

	switch {
	case errors.Is(err, common.ErrMissingRegion):
		status, msg = http.StatusBadRequest, common.ErrMissingRegion.Error()
	case errors.Is(err, errUnknownWhat), errors.Is(err, errMissingID), errors.Is(err, errBadBody),
		errors.Is(err, common.ErrInvalidID), errors.Is(err, services.ErrInvalidBlobPath), errors.As(err, &ve):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		status, msg = http.StatusUnauthorized, common.ErrorUnauthorized.Error()
	case errors.Is(err, common.ErrForbiddenRegion):
		status, msg = http.StatusForbidden, common.ErrForbiddenRegion.Error()
	case errors.Is(err, common.ErrorNotFound):
		status, msg = http.StatusNotFound, common.ErrorNotFound.Error()
	default:
		logger.Error(ctx, "request failed", "error", err)
	}

	respondJSON(w, status, errorResponse{Error: msg})
}
