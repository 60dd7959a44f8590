package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/services"
	"bizdesk/internal/utils/logger"
)

const maxPDFSize = 10 << 20

type InvoiceHandler struct {
	invoices *services.InvoiceService
	log      *logger.Logger
}

func NewInvoiceHandler(invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, log: logger.New("invoice_handler")}
}

type MarkPaidRequest struct {
	PaidAt *time.Time `json:"paidAt"`
}

// Gaps reports missing numbers in the workspace invoice sequence.
// @Summary Detect invoice number gaps
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Success 200 {array} services.Gap
// @Router /workspaces/{ws}/invoices/gaps [get]
func (h *InvoiceHandler) Gaps(c echo.Context) error {
	gaps, err := h.invoices.Gaps(c.Request().Context(), middleware.Scope(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, gaps)
}

// @Summary Next invoice number
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Success 200 {object} map[string]string
// @Router /workspaces/{ws}/invoices/next-number [get]
func (h *InvoiceHandler) NextNumber(c echo.Context) error {
	number, err := h.invoices.NextNumber(c.Request().Context(), middleware.Scope(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"number": number})
}

func (h *InvoiceHandler) MarkPaid(c echo.Context) error {
	var req MarkPaidRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	inv, err := h.invoices.MarkPaid(c.Request().Context(), middleware.Scope(c), c.Param("id"), req.PaidAt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) Archive(c echo.Context) error {
	inv, err := h.invoices.Archive(c.Request().Context(), middleware.Scope(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

// UploadPDF stores the invoice document
// @Summary Upload invoice PDF
// @Description Upload the PDF of an invoice to file storage
// @Tags invoices
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param id path string true "Invoice ID"
// @Param file formData file true "PDF to upload"
// @Success 200 {object} models.Invoice
// @Failure 400 {object} map[string]string "Validation error or file not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /workspaces/{ws}/invoices/{id}/pdf [post]
func (h *InvoiceHandler) UploadPDF(c echo.Context) error {
	contentType := c.Request().Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return echo.NewHTTPError(http.StatusBadRequest, "Content-Type must be multipart/form-data")
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.log.Warn("Failed to get file from request: %v", err)
		return echo.NewHTTPError(http.StatusBadRequest, "No file provided")
	}
	if file.Size > maxPDFSize {
		return echo.NewHTTPError(http.StatusBadRequest, "File is larger than 10MB")
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		return echo.NewHTTPError(http.StatusBadRequest, "File must be a PDF")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to open file")
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read file")
	}

	inv, err := h.invoices.UploadPDF(c.Request().Context(), middleware.Scope(c), c.Param("id"), content, file.Filename)
	if err != nil {
		return err
	}

	h.log.Success("Invoice %s PDF uploaded: %s", inv.Number, inv.PDFPath)
	return c.JSON(http.StatusOK, inv)
}
