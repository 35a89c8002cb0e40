package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"motorline-auction-service/internal/domain/shared"
)

type errorResponse struct {
	Error string   `json:"error"`
	Floor *float64 `json:"floor,omitempty"`
}

// WriteJSON writes a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError writes a JSON error body
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

// WriteDomainError maps domain errors onto HTTP status codes. Floor errors
// carry the current price floor so clients can correct the bid without an
// extra round trip. Anything unmapped is reported as a generic server error
// so storage details never leak to callers.
func WriteDomainError(w http.ResponseWriter, err error) {
	var floorErr *shared.FloorError
	if errors.As(err, &floorErr) {
		status := http.StatusConflict
		if errors.Is(err, shared.ErrBidTooLow) {
			status = http.StatusBadRequest
		}
		floor := floorErr.Floor
		WriteJSON(w, status, errorResponse{Error: floorErr.Error(), Floor: &floor})
		return
	}

	switch {
	case errors.Is(err, shared.ErrAuctionNotFound),
		errors.Is(err, shared.ErrUserNotFound),
		errors.Is(err, shared.ErrNoBidsFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrNotAuthorized),
		errors.Is(err, shared.ErrSelfBid):
		WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrAuctionInactive),
		errors.Is(err, shared.ErrAuctionHasBids),
		errors.Is(err, shared.ErrBidConflict):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrInvalidDuration),
		errors.Is(err, shared.ErrInvalidStartingPrice),
		errors.Is(err, shared.ErrInvalidReservePrice),
		errors.Is(err, shared.ErrInvalidEndTime),
		errors.Is(err, shared.ErrBidTooLow),
		errors.Is(err, shared.ErrInvalidRequest):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
