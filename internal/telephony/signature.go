package telephony

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"

	"frontdesk/pkg/logger"
)

// RequireSignature rejects webhook posts whose X-Twilio-Signature does not
// match the request. Validation runs before any handler touches the form.
// bypass is only honored outside production; config enforces that.
func RequireSignature(authToken string, bypass bool) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)
	return func(c *gin.Context) {
		if bypass {
			c.Next()
			return
		}

		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		params := make(map[string]string, len(c.Request.PostForm))
		for k, vs := range c.Request.PostForm {
			if len(vs) > 0 {
				params[k] = vs[0]
			}
		}

		url := webhookURL(c)
		sig := c.GetHeader("X-Twilio-Signature")
		if !validator.Validate(url, params, sig) {
			logger.FromGin(c).Warn("invalid webhook signature", "remote", c.ClientIP())
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// webhookURL reconstructs the exact URL the carrier signed. The signature
// covers scheme, host, path and query, so the edge proxy headers matter.
func webhookURL(c *gin.Context) string {
	scheme := "https"
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if c.Request.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}
