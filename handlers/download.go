package handlers

import (
	"net/http"

	"github.com/effective-security/xlog"
	"github.com/gin-gonic/gin"
	"tripcopilot/services"
)

// DownloadTripPDF renders a stored trip as a PDF attachment.
func (h *Handler) DownloadTripPDF(c *gin.Context) {
	trip, ok := h.loadTrip(c)
	if !ok {
		return
	}

	pdfBytes, err := services.GeneratePlanPDF(services.PDFData{
		TripID:  trip.ID,
		Request: &trip.Request,
		Plan:    &trip.Plan,
		Issues:  trip.Issues,
	})
	if err != nil {
		logger.ContextKV(c.Request.Context(), xlog.ERROR, "reason", "pdf", "id", trip.ID, "err", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=tripcopilot-"+trip.ID+".pdf")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
