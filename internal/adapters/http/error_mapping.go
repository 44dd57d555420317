package httpadapter

import (
	"net/http"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case domain.IsKind(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to a JSON response. Insufficient-material
// failures carry the ledger quantities so the foreman can correct the report
// without a second round trip.
func writeError(w http.ResponseWriter, err error) {
	if im, ok := domain.AsInsufficientMaterial(err); ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       im.Error(),
			"material_id": im.MaterialID,
			"material":    im.Material,
			"unit":        im.Unit,
			"requested":   im.Requested,
			"available":   im.Available,
		})
		return
	}
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
