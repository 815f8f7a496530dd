// Package handler exposes the ledger over HTTP.
package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qrattend/internal/apperr"
	"qrattend/internal/attendance"
	"qrattend/internal/credential"
	"qrattend/internal/devicestatus"
	"qrattend/internal/identity"
	"qrattend/internal/queue"
	"qrattend/internal/roster"
	"qrattend/internal/store"
)

// Config carries the HTTP-facing settings.
type Config struct {
	JWTIssuer     string
	JWTSigningKey string
	SessionTTL    time.Duration
	WebDir        string
	CORSOrigins   []string
}

// Deps are the collaborators the handlers call. Redis may be nil.
type Deps struct {
	DB          *store.DB
	Redis       *store.Redis
	Identities  *identity.Service
	Credentials *credential.Service
	Attendance  *attendance.Service
	Students    *roster.Repository
	Queue       queue.Queue
	Devices     *devicestatus.Client
}

type Handler struct {
	cfg Config
	Deps
}

func New(cfg Config, deps Deps) *Handler {
	return &Handler{cfg: cfg, Deps: deps}
}

// fail writes err as {"error": msg}. Store failures are logged with their
// operation and answered with a generic message the client may retry.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case apperr.Retryable(err):
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.Header("Retry-After", "1")
	case apperr.KindOf(err) == apperr.KindUnknown:
		log.Printf("%s %s: unexpected error: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(apperr.Status(err), gin.H{"error": apperr.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
