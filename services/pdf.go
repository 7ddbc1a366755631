package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jung-kurt/gofpdf"
	"tripcopilot/models"
)

type PDFData struct {
	TripID  string
	Request *models.PlanRequest
	Plan    *models.PlanResponse
	Issues  []string
}

// GeneratePlanPDF renders an itinerary and returns raw bytes (no filesystem needed).
func GeneratePlanPDF(data PDFData) ([]byte, error) {
	if data.Request == nil || data.Plan == nil {
		return nil, errors.New("plan and request are required")
	}
	req, plan := data.Request, data.Plan

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(150, 150, 150)
		pdf.CellFormat(0, 8,
			tr("Travel Copilot · Estimates only, not a booking confirmation · Page ")+fmt.Sprint(pdf.PageNo()),
			"", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// ── Header Bar ───────────────────────────────────────────
	pdf.SetFillColor(13, 24, 37)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(20, 8)
	pdf.CellFormat(100, 10, "Travel Copilot", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(212, 168, 67)
	pdf.SetXY(20, 18)
	pdf.CellFormat(170, 6, tr(strings.Join(req.Cities, " · ")), "", 1, "L", false, 0, "")

	pdf.SetY(35)
	pdf.SetTextColor(0, 0, 0)

	sectionHeader := func(title string) {
		pdf.SetFillColor(13, 24, 37)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(170, 8, "  "+tr(title), "", 1, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(55, 7, tr(label), "", 0, "L", false, 0, "")
		pdf.SetTextColor(20, 20, 20)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(115, 7, tr(value), "", 1, "L", false, 0, "")
	}

	// ── Trip Overview ─────────────────────────────────────────
	sectionHeader("Trip Overview")
	if data.TripID != "" {
		row("Reference", data.TripID)
	}
	row("Origin", req.Origin)
	row("Dates", fmtDateReadable(req.StartDate)+" → "+fmtDateReadable(req.EndDate))
	row("Party", fmt.Sprintf("%d traveller(s), %s pace", req.PartySize, req.Pace))
	row("Budget", fmt.Sprintf("€%d", req.BudgetEUR))
	row("Generated", time.Now().UTC().Format("02 Jan 2006, 15:04 UTC"))
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(170, 5, tr(plan.Summary), "", "L", false)
	pdf.Ln(4)

	// ── Flight ────────────────────────────────────────────────
	if f := plan.Flight; f != nil {
		sectionHeader("Flight Estimate")
		row("Provider", f.Provider)
		row("Price", fmt.Sprintf("€%.2f", f.PriceEUR))
		if f.Cached {
			row("Source", "cached quote")
		}
		pdf.Ln(4)
	}

	// ── Days ──────────────────────────────────────────────────
	for _, d := range plan.Days {
		title := fmt.Sprintf("%s · %s", fmtDateReadable(d.Date), d.City)
		if d.Weather != nil {
			title += fmt.Sprintf(" · %s %.0f/%.0f°C", d.Weather.Summary, d.Weather.HighC, d.Weather.LowC)
		}
		sectionHeader(title)

		pdf.SetFont("Helvetica", "", 9)
		for _, a := range d.Activities {
			pdf.SetTextColor(100, 100, 100)
			pdf.CellFormat(30, 6, timeRange(a.StartTime, a.EndTime), "", 0, "L", false, 0, "")
			pdf.SetTextColor(20, 20, 20)
			pdf.CellFormat(100, 6, tr(a.Title), "", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, a.TransportMode, "", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, tr(fmt.Sprintf("€%.0f", a.CostEUR)), "", 1, "R", false, 0, "")
		}
		if h := d.Hotel; h != nil {
			pdf.SetTextColor(100, 100, 100)
			pdf.CellFormat(30, 6, "Night", "", 0, "L", false, 0, "")
			pdf.SetTextColor(20, 20, 20)
			pdf.CellFormat(120, 6, tr(fmt.Sprintf("Hotel (%s, ★ %.1f)", h.Provider, h.Rating)), "", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, tr(fmt.Sprintf("€%.0f", h.PriceEUR)), "", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}

	// ── Cost Summary ──────────────────────────────────────────
	sectionHeader("Cost Estimate")
	pdf.SetFillColor(212, 168, 67)
	pdf.SetTextColor(13, 24, 37)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(55, 9, "TOTAL ESTIMATE", "", 0, "L", true, 0, "")
	pdf.CellFormat(115, 9, tr(fmt.Sprintf("€%.2f", plan.TotalCostEstimateEUR)), "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	if plan.Narrative != "" {
		sectionHeader("Overview")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(40, 40, 40)
		pdf.MultiCell(170, 5, tr(plan.Narrative), "", "L", false)
		pdf.Ln(4)
	}

	if len(data.Issues) > 0 {
		sectionHeader("Checks")
		pdf.SetFont("Helvetica", "", 9)
		for _, issue := range data.Issues {
			pdf.MultiCell(170, 5, tr("• "+issue), "", "L", false)
		}
		pdf.Ln(4)
	}

	if len(plan.Citations) > 0 {
		sectionHeader("Sources")
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(80, 80, 80)
		for _, c := range plan.Citations {
			pdf.MultiCell(170, 4, tr(c), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "PDF output failed")
	}
	return buf.Bytes(), nil
}

func fmtDateReadable(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02 Jan 2006 (Mon)")
}

// timeRange shortens "YYYY-MM-DD HH:MM" pairs to "HH:MM-HH:MM".
func timeRange(start, end string) string {
	clock := func(s string) string {
		if i := strings.LastIndex(s, " "); i >= 0 {
			return s[i+1:]
		}
		return s
	}
	return clock(start) + "-" + clock(end)
}
