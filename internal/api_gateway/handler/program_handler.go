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
	"github.com/loyalty-ledger/internal/domain/shared"
)

// ProgramHandler handles HTTP requests for program registry operations
type ProgramHandler struct {
	programService service.ProgramService
	logger         *slog.Logger
}

// NewProgramHandler creates a new program handler
func NewProgramHandler(logger *slog.Logger, programService service.ProgramService) *ProgramHandler {
	return &ProgramHandler{
		programService: programService,
		logger:         logger,
	}
}

// Create handles creation of a new loyalty program
func (h *ProgramHandler) Create(c *gin.Context) {
	var req CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	p := programFromPayload(middleware.GetMerchantID(c), req.Name, req.Kind, req.EarnRate, req.RewardThreshold,
		req.ExpiryDays, req.MinPurchaseAmount, req.MaxRewardsPerDay, req.MultiplierWindows, req.Timezone)

	created, err := h.programService.CreateProgram(c.Request.Context(), p)
	if err != nil {
		h.respondProgramError(c, err)
		return
	}

	RespondCreated(c, mapProgramToResponse(created))
}

// GetByID retrieves a program by its ID, returning 404 if not found
func (h *ProgramHandler) GetByID(c *gin.Context) {
	programID, ok := h.parseID(c, c.Param("id"), "program")
	if !ok {
		return
	}

	p, err := h.programService.GetProgram(c.Request.Context(), middleware.GetMerchantID(c), programID)
	if err != nil {
		h.respondProgramError(c, err)
		return
	}

	RespondOK(c, mapProgramToResponse(p))
}

// List retrieves all of the merchant's programs
func (h *ProgramHandler) List(c *gin.Context) {
	programs, err := h.programService.ListPrograms(c.Request.Context(), middleware.GetMerchantID(c))
	if err != nil {
		h.respondProgramError(c, err)
		return
	}

	responses := make([]ProgramResponse, 0, len(programs))
	for _, p := range programs {
		responses = append(responses, mapProgramToResponse(p))
	}
	RespondOK(c, responses)
}

// Update handles edits to an existing program
func (h *ProgramHandler) Update(c *gin.Context) {
	programID, ok := h.parseID(c, c.Param("id"), "program")
	if !ok {
		return
	}

	var req UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	p := programFromPayload(middleware.GetMerchantID(c), req.Name, req.Kind, req.EarnRate, req.RewardThreshold,
		req.ExpiryDays, req.MinPurchaseAmount, req.MaxRewardsPerDay, req.MultiplierWindows, req.Timezone)
	p.ID = programID

	updated, err := h.programService.UpdateProgram(c.Request.Context(), p)
	if err != nil {
		h.respondProgramError(c, err)
		return
	}

	RespondOK(c, mapProgramToResponse(updated))
}

// Deactivate soft-deletes a program
func (h *ProgramHandler) Deactivate(c *gin.Context) {
	programID, ok := h.parseID(c, c.Param("id"), "program")
	if !ok {
		return
	}

	if err := h.programService.DeactivateProgram(c.Request.Context(), middleware.GetMerchantID(c), programID); err != nil {
		h.respondProgramError(c, err)
		return
	}

	RespondNoContent(c)
}

func (h *ProgramHandler) parseID(c *gin.Context, raw, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Error("Invalid "+what+" ID", "id", raw, "error", err)
		RespondBadRequest(c, "Invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProgramHandler) respondProgramError(c *gin.Context, err error) {
	if errors.Is(err, program.ErrProgramNotFound{}) {
		RespondNotFound(c, "Program not found")
		return
	}
	if _, ok := shared.CodeOf(err); ok {
		RespondEngineError(c, h.logger, err)
		return
	}
	h.logger.Error("Program operation failed", "error", err)
	RespondInternalError(c)
}

func programFromPayload(
	merchantID uuid.UUID,
	name, kind string,
	earnRate, rewardThreshold int64,
	expiryDays int,
	minPurchaseAmount int64,
	maxRewardsPerDay *int,
	windows []MultiplierWindowPayload,
	timezone string,
) *program.Program {
	p := &program.Program{
		MerchantID:        merchantID,
		Name:              name,
		Kind:              program.Kind(kind),
		EarnRate:          earnRate,
		RewardThreshold:   rewardThreshold,
		ExpiryDays:        expiryDays,
		MinPurchaseAmount: minPurchaseAmount,
		MaxRewardsPerDay:  maxRewardsPerDay,
		Timezone:          timezone,
	}
	for _, w := range windows {
		weekdays := make([]time.Weekday, 0, len(w.Weekdays))
		for _, d := range w.Weekdays {
			weekdays = append(weekdays, time.Weekday(d))
		}
		p.MultiplierWindows = append(p.MultiplierWindows, program.MultiplierWindow{
			Name:     w.Name,
			Weekdays: weekdays,
			Factor:   w.Factor,
		})
	}
	return p
}

// mapProgramToResponse maps a program entity to a program response DTO
func mapProgramToResponse(p *program.Program) ProgramResponse {
	resp := ProgramResponse{
		ID:                p.ID.String(),
		MerchantID:        p.MerchantID.String(),
		Name:              p.Name,
		Kind:              string(p.Kind),
		EarnRate:          p.EarnRate,
		RewardThreshold:   p.RewardThreshold,
		ExpiryDays:        p.ExpiryDays,
		MinPurchaseAmount: p.MinPurchaseAmount,
		MaxRewardsPerDay:  p.MaxRewardsPerDay,
		Timezone:          p.Timezone,
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
	for _, w := range p.MultiplierWindows {
		weekdays := make([]int, 0, len(w.Weekdays))
		for _, d := range w.Weekdays {
			weekdays = append(weekdays, int(d))
		}
		resp.MultiplierWindows = append(resp.MultiplierWindows, MultiplierWindowPayload{
			Name:     w.Name,
			Weekdays: weekdays,
			Factor:   w.Factor,
		})
	}
	return resp
}
