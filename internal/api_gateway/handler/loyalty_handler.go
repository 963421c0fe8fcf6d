package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/api_gateway/middleware"
	"github.com/loyalty-ledger/internal/api_gateway/service"
	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/shared"
	"github.com/loyalty-ledger/internal/engine"
)

// LoyaltyHandler handles HTTP requests for earn, redeem, balance and history
type LoyaltyHandler struct {
	loyaltyService service.LoyaltyService
	logger         *slog.Logger
}

// NewLoyaltyHandler creates a new loyalty handler
func NewLoyaltyHandler(logger *slog.Logger, loyaltyService service.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{
		loyaltyService: loyaltyService,
		logger:         logger,
	}
}

// Earn records an accrual synchronously and returns the appended entry
func (h *LoyaltyHandler) Earn(c *gin.Context) {
	req, ok := h.bindEarn(c)
	if !ok {
		return
	}

	entry, err := h.loyaltyService.Earn(c.Request.Context(), req)
	if err != nil {
		RespondEngineError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// EarnAsync enqueues an accrual for asynchronous processing. Replays of an
// already-consumed idempotency key return the existing entry immediately.
func (h *LoyaltyHandler) EarnAsync(c *gin.Context) {
	req, ok := h.bindEarn(c)
	if !ok {
		return
	}

	existing, err := h.loyaltyService.EnqueueEarn(c.Request.Context(), req)
	if err != nil {
		RespondEngineError(c, h.logger, err)
		return
	}
	if existing != nil {
		RespondOK(c, mapEntryToResponse(existing))
		return
	}

	RespondAccepted(c, gin.H{
		"status":          "ACCEPTED",
		"idempotency_key": req.IdempotencyKey,
	})
}

// Redeem spends units against a reward
func (h *LoyaltyHandler) Redeem(c *gin.Context) {
	var req RedeemHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	redeemReq := &shared.RedeemRequest{
		MerchantID:     middleware.GetMerchantID(c),
		CustomerID:     uuid.MustParse(req.CustomerID),
		ProgramID:      uuid.MustParse(req.ProgramID),
		RewardID:       uuid.MustParse(req.RewardID),
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  middleware.GetCorrelationID(c),
	}
	if req.OccurredAt != nil {
		redeemReq.OccurredAt = req.OccurredAt.UTC()
	}

	entry, err := h.loyaltyService.Redeem(c.Request.Context(), redeemReq)
	if err != nil {
		RespondEngineError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// GetBalance projects the current balance for a (customer, program) pair.
// An empty ledger yields a zero balance, not a 404.
func (h *LoyaltyHandler) GetBalance(c *gin.Context) {
	customerID, programID, ok := h.parsePartition(c)
	if !ok {
		return
	}

	bal, err := h.loyaltyService.GetBalance(c.Request.Context(), customerID, programID)
	if err != nil {
		RespondEngineError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBalanceToResponse(bal))
}

// ListEntries retrieves a newest-first page of a partition's ledger history
func (h *LoyaltyHandler) ListEntries(c *gin.Context) {
	customerID, programID, ok := h.parsePartition(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.loyaltyService.ListEntries(c.Request.Context(), customerID, programID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondEngineError(c, h.logger, err)
		return
	}

	responses := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}
	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// GetEntry retrieves one ledger entry by ID, returns 404 if not found
func (h *LoyaltyHandler) GetEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.loyaltyService.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		RespondEngineError(c, h.logger, err)
		return
	}
	if entry == nil {
		RespondNotFound(c, "Ledger entry not found")
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

func (h *LoyaltyHandler) bindEarn(c *gin.Context) (*shared.EarnRequest, bool) {
	var req EarnHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}

	earnReq := &shared.EarnRequest{
		MerchantID:     middleware.GetMerchantID(c),
		CustomerID:     uuid.MustParse(req.CustomerID),
		ProgramID:      uuid.MustParse(req.ProgramID),
		PurchaseAmount: req.PurchaseAmount,
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  middleware.GetCorrelationID(c),
	}
	if req.OccurredAt != nil {
		earnReq.OccurredAt = req.OccurredAt.UTC()
	}
	if earnReq.IdempotencyKey == "" {
		earnReq.IdempotencyKey = uuid.New().String()
	}
	return earnReq, true
}

func (h *LoyaltyHandler) parsePartition(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	customerID, err := uuid.Parse(c.Param("customer_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid customer ID")
		return uuid.Nil, uuid.Nil, false
	}
	programID, err := uuid.Parse(c.Param("program_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid program ID")
		return uuid.Nil, uuid.Nil, false
	}
	return customerID, programID, true
}

// mapEntryToResponse maps a ledger entry to an entry response DTO
func mapEntryToResponse(entry *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:             entry.ID.String(),
		MerchantID:     entry.MerchantID.String(),
		CustomerID:     entry.CustomerID.String(),
		ProgramID:      entry.ProgramID.String(),
		Kind:           string(entry.Kind),
		Amount:         entry.Amount,
		PurchaseAmount: entry.PurchaseAmount,
		OccurredAt:     entry.OccurredAt.Format(time.RFC3339),
		CreatedAt:      entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.RewardID != nil {
		resp.RewardID = entry.RewardID.String()
	}
	if entry.SourceEntryID != nil {
		resp.SourceEntryID = entry.SourceEntryID.String()
	}
	if entry.ExpiresAt != nil {
		resp.ExpiresAt = entry.ExpiresAt.Format(time.RFC3339)
	}
	return resp
}

// mapBalanceToResponse maps a projected balance to a balance response DTO
func mapBalanceToResponse(bal *engine.Balance) BalanceResponse {
	resp := BalanceResponse{
		CustomerID:       bal.CustomerID.String(),
		ProgramID:        bal.ProgramID.String(),
		AvailableUnits:   bal.AvailableUnits,
		LifetimeEarned:   bal.LifetimeEarned,
		LifetimeRedeemed: bal.LifetimeRedeemed,
		AsOf:             bal.AsOf.Format(time.RFC3339),
	}
	if bal.NextExpiry != nil {
		resp.NextExpiry = bal.NextExpiry.Format(time.RFC3339)
	}
	return resp
}
