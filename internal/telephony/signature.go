package telephony

import (
	"net/http"
	"strings"

	"callsummary/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
)

const headerSignature = "X-Twilio-Signature"

// RequireSignature rejects webhooks whose X-Twilio-Signature does not match
// the auth token. baseURL must be the public origin Twilio calls, since the
// signature covers the full URL rather than the path this process sees.
func RequireSignature(authToken, baseURL string) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)
	baseURL = strings.TrimRight(baseURL, "/")

	return func(c *gin.Context) {
		sig := c.GetHeader(headerSignature)
		if sig == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing signature"})
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
			return
		}

		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		url := baseURL + c.Request.URL.RequestURI()
		if !validator.Validate(url, params, sig) {
			logger.FromGin(c).Warn("webhook signature rejected", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}
