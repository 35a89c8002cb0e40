package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/pkg/numeral"
	"motorline-auction-service/internal/ports/inbound"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler serves the REST surface of the bidding engine
type Handler struct {
	auctionService inbound.AuctionService
	bidService     inbound.BidService
	verifier       *TokenVerifier
	logger         zerolog.Logger
}

type HandlerParams struct {
	AuctionService inbound.AuctionService
	BidService     inbound.BidService
	Verifier       *TokenVerifier
	Logger         zerolog.Logger
}

func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		auctionService: params.AuctionService,
		bidService:     params.BidService,
		verifier:       params.Verifier,
		logger:         params.Logger.With().Str("component", "rest").Logger(),
	}
}

// Routes mounts the auction endpoints on a chi router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.verifier.OptionalAuth)
		r.Get("/auctions", h.listAuctions)
		r.Get("/auctions/{auctionID}", h.getAuction)
		r.Get("/auctions/{auctionID}/bids", h.getBids)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.verifier.RequireAuth)
		r.Post("/auctions", h.createAuction)
		r.Put("/auctions/{auctionID}", h.updateAuction)
		r.Delete("/auctions/{auctionID}", h.deleteAuction)
		r.Post("/auctions/{auctionID}/bid", h.placeBid)
	})

	return r
}

type createAuctionBody struct {
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Category        string             `json:"category"`
	Car             auction.CarDetails `json:"car"`
	StartingPrice   float64            `json:"starting_price"`
	ReservePrice    *float64           `json:"reserve_price,omitempty"`
	BuyNowPrice     *float64           `json:"buy_now_price,omitempty"`
	DurationSeconds int64              `json:"duration_seconds"`
	Draft           bool               `json:"draft"`
}

func (h *Handler) createAuction(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	var body createAuctionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.auctionService.CreateAuction(r.Context(), inbound.CreateAuctionRequest{
		SellerID:      identity.UserID,
		Title:         body.Title,
		Description:   body.Description,
		Category:      body.Category,
		Car:           body.Car,
		StartingPrice: body.StartingPrice,
		ReservePrice:  body.ReservePrice,
		BuyNowPrice:   body.BuyNowPrice,
		Duration:      time.Duration(body.DurationSeconds) * time.Second,
		Draft:         body.Draft,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("sellerId", identity.UserID.String()).Msg("Create auction rejected")
		WriteDomainError(w, err)
		return
	}

	h.logger.Info().Str("auctionId", created.ID.String()).Msg("Auction created")
	WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) getAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(chi.URLParam(r, "auctionID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid auction id")
		return
	}

	snapshot, err := h.auctionService.GetAuction(r.Context(), auctionID, IdentityFromContext(r.Context()))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) listAuctions(w http.ResponseWriter, r *http.Request) {
	req := inbound.ListAuctionsRequest{
		Category: r.URL.Query().Get("category"),
		CarModel: r.URL.Query().Get("car_model"),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := auction.Status(s)
		req.Status = &status
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		req.Page = p
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		req.PageSize = n
	}

	snapshots, err := h.auctionService.ListAuctions(r.Context(), req, IdentityFromContext(r.Context()))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"auctions": snapshots,
		"count":    len(snapshots),
	})
}

func (h *Handler) updateAuction(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	auctionID, err := uuid.Parse(chi.URLParam(r, "auctionID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid auction id")
		return
	}

	var patch inbound.AuctionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.auctionService.UpdateAuction(r.Context(), inbound.UpdateAuctionRequest{
		AuctionID: auctionID,
		Caller:    *identity,
		Patch:     patch,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteAuction(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	auctionID, err := uuid.Parse(chi.URLParam(r, "auctionID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid auction id")
		return
	}

	if err := h.auctionService.DeleteAuction(r.Context(), auctionID, *identity); err != nil {
		WriteDomainError(w, err)
		return
	}

	h.logger.Info().Str("auctionId", auctionID.String()).Msg("Auction deleted")
	w.WriteHeader(http.StatusNoContent)
}

type placeBidBody struct {
	// amount arrives either as a JSON number or as a string that may use
	// localized digits, e.g. "١٢٥٠٠"
	Amount json.RawMessage `json:"amount"`
}

func (h *Handler) placeBid(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	auctionID, err := uuid.Parse(chi.URLParam(r, "auctionID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid auction id")
		return
	}

	var body placeBidBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, ok := decodeAmount(body.Amount)
	if !ok {
		WriteDomainError(w, shared.ErrInvalidAmount)
		return
	}

	placed, err := h.bidService.PlaceBid(r.Context(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  identity.UserID,
		Amount:    amount,
	})
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("auctionId", auctionID.String()).
			Str("bidderId", identity.UserID.String()).
			Msg("Bid rejected")
		WriteDomainError(w, err)
		return
	}

	h.logger.Info().
		Str("auctionId", auctionID.String()).
		Str("bidId", placed.ID.String()).
		Float64("amount", placed.Amount).
		Msg("Bid accepted")
	WriteJSON(w, http.StatusCreated, placed)
}

func (h *Handler) getBids(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(chi.URLParam(r, "auctionID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid auction id")
		return
	}

	bids, err := h.bidService.GetBids(r.Context(), auctionID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bids":  bids,
		"count": len(bids),
	})
}

// decodeAmount accepts both bare JSON numbers and quoted strings with
// possibly localized digits
func decodeAmount(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return numeral.ParseAmount(asString)
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil && numeral.IsValidAmount(asNumber) {
		return asNumber, true
	}

	return 0, false
}
