package authgin

import (
	"github.com/gin-gonic/gin"
)

// Caller is a view of the verified assertion for handlers.
type Caller struct {
	Subject  string   `json:"sub"`
	Email    string   `json:"email,omitempty"`
	Issuer   string   `json:"iss"`
	Audience []string `json:"aud,omitempty"`

	Source string `json:"source"` // "claims" | "none"
}

// CurrentCaller returns the caller identified by the verified assertion, or
// a "none" view when the request was not authenticated.
func CurrentCaller(c *gin.Context) (Caller, bool) {
	cl, ok := ClaimsFromGin(c)
	if !ok || cl.Subject() == "" {
		return Caller{Source: "none"}, false
	}
	return Caller{
		Subject:  cl.Subject(),
		Email:    cl.String("email"),
		Issuer:   cl.Issuer(),
		Audience: cl.Audience(),
		Source:   "claims",
	}, true
}
