package handler

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/apperr"
	"qrattend/internal/roster"
)

// maxRosterUpload bounds an uploaded roster file.
const maxRosterUpload = 8 << 20

type markRequest struct {
	EnrollmentNo string `json:"enrollment_no"`
	Date         string `json:"date"`
	Present      *bool  `json:"present"`
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.Attendance.Mark(c.Request.Context(), req.EnrollmentNo, req.Date, req.Present); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance marked successfully"})
}

func (h *Handler) AttendanceHistory(c *gin.Context) {
	hist, err := h.Attendance.History(c.Request.Context(), c.Param("enrollment_no"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.Students.List(c.Request.Context())
	if err != nil {
		h.fail(c, apperr.Storage("roster.list", err))
		return
	}
	c.JSON(http.StatusOK, students)
}

// ImportStudents queues an uploaded roster CSV for the importer.
func (h *Handler) ImportStudents(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxRosterUpload+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
		return
	}
	if len(data) == 0 {
		badRequest(c, "file is empty")
		return
	}
	if len(data) > maxRosterUpload {
		badRequest(c, "file too large")
		return
	}
	if err := roster.Enqueue(c.Request.Context(), h.Queue, data); err != nil {
		log.Printf("roster import enqueue failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "import queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
