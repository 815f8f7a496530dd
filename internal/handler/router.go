package handler

import (
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qrattend/internal/auth"
	"qrattend/internal/httpmiddleware"
)

// Router builds the gin engine with every route mounted.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.CORS(h.cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.GET("/user-emails", h.UserEmails)

		authed := api.Group("", auth.Bearer(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
		authed.GET("/user-profile", h.Profile)
		authed.POST("/generate-qr", h.IssueQR)
		authed.GET("/my-qr", h.MyQR)
	}

	r.GET("/students", h.ListStudents)
	r.POST("/students/import", h.ImportStudents)
	r.POST("/attendance/mark", h.MarkAttendance)
	r.GET("/attendance/:enrollment_no", h.AttendanceHistory)
	r.GET("/device-status", h.DeviceStatus)

	if h.cfg.WebDir != "" {
		r.StaticFile("/", filepath.Join(h.cfg.WebDir, "dashboard.html"))
		r.Static("/static", h.cfg.WebDir)
	}
	return r
}
