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

type SocialHandler struct {
	service service.SocialService
}

func NewSocialHandler(service service.SocialService) *SocialHandler {
	return &SocialHandler{service: service}
}

func (h *SocialHandler) CreateSocialChallenge(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input dto.CreateSocialChallengeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if ve, ok := err.(validatorv10.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(ve)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.CreateSocialChallenge(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *SocialHandler) JoinSocialChallenge(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	resp, err := h.service.JoinSocialChallenge(c.Request.Context(), userID, challengeID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SocialHandler) SettleSocialChallenge(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	result, err := h.service.SettleSocialChallenge(c.Request.Context(), userID, challengeID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SocialHandler) GetActiveSocialChallenges(c *gin.Context) {
	challenges, err := h.service.GetActiveSocialChallenges(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": challenges})
}

func (h *SocialHandler) GetUserSocialChallenges(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challenges, err := h.service.GetUserSocialChallenges(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": challenges})
}

func (h *SocialHandler) CanJoinChallenge(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	canJoin := h.service.CanJoinChallenge(c.Request.Context(), userID, challengeID)
	c.JSON(http.StatusOK, dto.CanJoinResponse{CanJoin: canJoin})
}
