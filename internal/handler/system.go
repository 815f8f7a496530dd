package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Healthz reports database, schema and Redis reachability. Redis only counts
// when it is configured. A schema migration that failed at boot is retried
// here once the database answers. The device service is reported but never
// degrades the status; the dashboard works without it.
func (h *Handler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealthy := h.DB.Healthy(ctx)
	schemaReady := h.DB.Migrated()
	if dbHealthy && !schemaReady {
		if err := h.DB.EnsureSchema(ctx); err != nil {
			log.Printf("healthz: schema migration failed: %v", err)
		} else {
			log.Println("healthz: schema migrated")
			schemaReady = true
		}
	}

	status := http.StatusOK
	body := gin.H{"status": "ok", "db": dbHealthy, "schema": schemaReady}

	if h.Redis != nil {
		redisHealthy := h.Redis.Healthy(ctx)
		body["redis"] = redisHealthy
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
	} else {
		body["redis"] = "disabled"
	}

	if h.Devices != nil {
		devCtx, cancel := context.WithTimeout(ctx, deviceHealthTimeout)
		err := h.Devices.Health(devCtx)
		cancel()
		if err != nil {
			log.Printf("healthz: device service: %v", err)
		}
		body["devices"] = err == nil
	}

	if !dbHealthy || !schemaReady {
		status = http.StatusServiceUnavailable
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

const deviceHealthTimeout = 2 * time.Second

// DeviceStatus forwards the scanner devices' report.
func (h *Handler) DeviceStatus(c *gin.Context) {
	status, err := h.Devices.Status(c.Request.Context())
	if err != nil {
		log.Printf("device status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching device status"})
		return
	}
	c.JSON(http.StatusOK, status)
}
