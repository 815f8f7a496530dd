package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/credential"
)

// IssueQR stores a QR payload for any (username, email) pair. Any logged-in
// caller may issue.
func (h *Handler) IssueQR(c *gin.Context) {
	var req credential.IssueInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.Credentials.Issue(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "QR code saved successfully"})
}

func (h *Handler) MyQR(c *gin.Context) {
	ident, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	payload, err := h.Credentials.Fetch(c.Request.Context(), ident)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr_data": payload})
}
