package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univreg/registrar-api/internal/service"
	appErrors "github.com/univreg/registrar-api/pkg/errors"
	"github.com/univreg/registrar-api/pkg/response"
)

// TimetableHandler exposes timetable projection and export endpoints.
type TimetableHandler struct {
	timetables *service.TimetableService
}

// NewTimetableHandler constructs TimetableHandler.
func NewTimetableHandler(timetables *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables}
}

// Weekly godoc
// @Summary Weekly timetable for a student
// @Tags Timetables
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/timetable [get]
func (h *TimetableHandler) Weekly(c *gin.Context) {
	timetable, err := h.timetables.Weekly(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Day godoc
// @Summary Single-day timetable for a student
// @Tags Timetables
// @Produce json
// @Param id path string true "Student ID"
// @Param day path string true "Day of week"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/timetable/{day} [get]
func (h *TimetableHandler) Day(c *gin.Context) {
	day, entries, err := h.timetables.Day(c.Request.Context(), c.Param("id"), c.Param("day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"day": day, "entries": entries}, nil)
}

// Export godoc
// @Summary Export a student's timetable
// @Tags Timetables
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "Export format: json, csv, or pdf" default(json)
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/timetable-export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	studentID := c.Param("id")
	format := c.DefaultQuery("format", "json")

	switch format {
	case "json":
		export, err := h.timetables.Export(c.Request.Context(), studentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, export, nil)
	case "csv":
		data, err := h.timetables.RenderCSV(c.Request.Context(), studentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"timetable-%s.csv\"", studentID))
		c.Data(http.StatusOK, "text/csv", data)
	case "pdf":
		data, err := h.timetables.RenderPDF(c.Request.Context(), studentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"timetable-%s.pdf\"", studentID))
		c.Data(http.StatusOK, "application/pdf", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json, csv, or pdf"))
	}
}
