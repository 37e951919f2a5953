package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	validatorv10 "github.com/go-playground/validator/v10"

	"habitstake.app/backend/internal/dto"
	"habitstake.app/backend/internal/service"
	"habitstake.app/backend/pkg/response"
	"habitstake.app/backend/pkg/validator"
)

type ChallengeHandler struct {
	service  service.ChallengeService
	advisory service.AdvisoryService
}

func NewChallengeHandler(service service.ChallengeService, advisory service.AdvisoryService) *ChallengeHandler {
	return &ChallengeHandler{service: service, advisory: advisory}
}

func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input dto.CreateChallengeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if ve, ok := err.(validatorv10.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(ve)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.CreateChallenge(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ChallengeHandler) GetUserChallenges(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challenges, err := h.service.GetUserChallenges(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": challenges})
}

func (h *ChallengeHandler) GetSuggestions(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	suggestions, err := h.advisory.ChallengeSuggestions(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": suggestions})
}

func (h *ChallengeHandler) GetSuccessProbability(c *gin.Context) {
	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	probability := h.advisory.SuccessProbability(c.Request.Context(), challengeID)
	c.JSON(http.StatusOK, gin.H{"probability": probability})
}

func (h *ChallengeHandler) GetProgressReport(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	report, err := h.advisory.ProgressReport(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
