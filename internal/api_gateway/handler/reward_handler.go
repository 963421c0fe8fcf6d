package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/api_gateway/middleware"
	"github.com/loyalty-ledger/internal/api_gateway/service"
	"github.com/loyalty-ledger/internal/domain/program"
	"github.com/loyalty-ledger/internal/domain/reward"
	"github.com/loyalty-ledger/internal/domain/shared"
)

// RewardHandler handles HTTP requests for reward catalog operations
type RewardHandler struct {
	rewardService service.RewardService
	logger        *slog.Logger
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(logger *slog.Logger, rewardService service.RewardService) *RewardHandler {
	return &RewardHandler{
		rewardService: rewardService,
		logger:        logger,
	}
}

// Create adds a reward to a program
func (h *RewardHandler) Create(c *gin.Context) {
	programID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid program ID")
		return
	}

	var req CreateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rw := &reward.Reward{
		ProgramID:     programID,
		MerchantID:    middleware.GetMerchantID(c),
		Name:          req.Name,
		UnitsRequired: req.UnitsRequired,
	}

	created, err := h.rewardService.CreateReward(c.Request.Context(), rw)
	if err != nil {
		h.respondRewardError(c, err)
		return
	}

	RespondCreated(c, mapRewardToResponse(created))
}

// ListByProgram retrieves the reward catalog of a program
func (h *RewardHandler) ListByProgram(c *gin.Context) {
	programID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid program ID")
		return
	}

	rewards, err := h.rewardService.ListRewards(c.Request.Context(), middleware.GetMerchantID(c), programID)
	if err != nil {
		h.respondRewardError(c, err)
		return
	}

	responses := make([]RewardResponse, 0, len(rewards))
	for _, rw := range rewards {
		responses = append(responses, mapRewardToResponse(rw))
	}
	RespondOK(c, responses)
}

// Update edits an existing reward
func (h *RewardHandler) Update(c *gin.Context) {
	rewardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid reward ID")
		return
	}

	var req UpdateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rw := &reward.Reward{
		ID:            rewardID,
		MerchantID:    middleware.GetMerchantID(c),
		Name:          req.Name,
		UnitsRequired: req.UnitsRequired,
		IsAvailable:   req.IsAvailable,
	}

	updated, err := h.rewardService.UpdateReward(c.Request.Context(), rw)
	if err != nil {
		h.respondRewardError(c, err)
		return
	}

	RespondOK(c, mapRewardToResponse(updated))
}

// SetAvailability toggles whether a reward can currently be redeemed
func (h *RewardHandler) SetAvailability(c *gin.Context) {
	rewardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid reward ID")
		return
	}

	var req SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.rewardService.SetRewardAvailability(c.Request.Context(), middleware.GetMerchantID(c), rewardID, *req.IsAvailable); err != nil {
		h.respondRewardError(c, err)
		return
	}

	RespondNoContent(c)
}

func (h *RewardHandler) respondRewardError(c *gin.Context, err error) {
	if errors.Is(err, reward.ErrRewardNotFound{}) {
		RespondNotFound(c, "Reward not found")
		return
	}
	if errors.Is(err, program.ErrProgramNotFound{}) {
		RespondNotFound(c, "Program not found")
		return
	}
	if _, ok := shared.CodeOf(err); ok {
		RespondEngineError(c, h.logger, err)
		return
	}
	h.logger.Error("Reward operation failed", "error", err)
	RespondInternalError(c)
}

// mapRewardToResponse maps a reward entity to a reward response DTO
func mapRewardToResponse(rw *reward.Reward) RewardResponse {
	return RewardResponse{
		ID:            rw.ID.String(),
		ProgramID:     rw.ProgramID.String(),
		MerchantID:    rw.MerchantID.String(),
		Name:          rw.Name,
		UnitsRequired: rw.UnitsRequired,
		IsAvailable:   rw.IsAvailable,
		CreatedAt:     rw.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     rw.UpdatedAt.Format(time.RFC3339),
	}
}
