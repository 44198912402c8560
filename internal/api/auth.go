package api

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/redis-election/internal/models"
	"github.com/saxenaaman628/redis-election/internal/utils"
)

type AuthHandler struct {
	secret string
	ttl    time.Duration
}

func NewAuthHandler(secret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{secret: secret, ttl: ttl}
}

// LoginHandler issues a token naming the requested address. Holding the
// address's key is not checked.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		return
	}

	token, err := utils.GenerateJWTToken(common.HexToAddress(req.Address), h.secret, h.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
