package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// MerchantIDHeader carries the authenticated merchant identity. Upstream
	// auth terminates before this service; the gateway only trusts the header.
	MerchantIDHeader = "X-Merchant-ID"
	// MerchantIDKey is the context key the merchant ID is stored under
	MerchantIDKey = "merchant_id"
)

// MerchantIdentity extracts and validates the merchant ID header. Requests
// without a valid merchant UUID never reach a handler.
func MerchantIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(MerchantIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "missing " + MerchantIDHeader + " header"},
			})
			return
		}

		merchantID, err := uuid.Parse(raw)
		if err != nil || merchantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "invalid " + MerchantIDHeader + " header"},
			})
			return
		}

		c.Set(MerchantIDKey, merchantID)
		c.Next()
	}
}

// GetMerchantID retrieves the authenticated merchant ID from the context
func GetMerchantID(c *gin.Context) uuid.UUID {
	if id, exists := c.Get(MerchantIDKey); exists {
		if merchantID, ok := id.(uuid.UUID); ok {
			return merchantID
		}
	}
	return uuid.Nil
}
