package middleware

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/redis-election/internal/utils"
)

// CallerKey is the gin context key holding the authenticated common.Address.
const CallerKey = "caller"

func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		addr, err := utils.ParseJWTToken(raw, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(CallerKey, addr)
		c.Next()
	}
}

// Caller returns the address set by JWTAuthMiddleware.
func Caller(c *gin.Context) common.Address {
	return c.MustGet(CallerKey).(common.Address)
}
