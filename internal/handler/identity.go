package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/auth"
	"qrattend/internal/identity"
)

func (h *Handler) Register(c *gin.Context) {
	var req identity.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.Identities.Register(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully"})
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Login is password-less: the username/email pair is the credential.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ident, err := h.Identities.Resolve(c.Request.Context(), req.Username, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, _, err := auth.Issue(ident.ID, ident.Username, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.SessionTTL)
	if err != nil {
		log.Printf("token issue failed for %s: %v", ident.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Profile(c *gin.Context) {
	ident, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": ident})
}

// UserEmails lists usernames with their emails for the dashboard.
func (h *Handler) UserEmails(c *gin.Context) {
	contacts, err := h.Identities.Contacts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

// currentIdentity loads the identity named by the bearer token, writing the
// error response itself when it cannot.
func (h *Handler) currentIdentity(c *gin.Context) (identity.Identity, bool) {
	claims, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMessage})
		return identity.Identity{}, false
	}
	ident, err := h.Identities.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, err)
		return identity.Identity{}, false
	}
	return ident, true
}
