package handlers

import (
	"errors"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/pagination"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DocumentHandler handles supporting document endpoints
type DocumentHandler struct {
	documentService *services.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

// Upload stores a supporting document
// @Summary Upload document
// @Description Multipart upload of a PDF, JPG or PNG file
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Document file"
// @Param document_type formData string true "proof_of_identity | proof_of_address | proof_of_birth | photo | other"
// @Param appointment_id formData int false "Appointment ID"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "file is required")
	}

	input := &services.UploadInput{
		DocumentType: c.FormValue("document_type"),
		FileName:     fh.Filename,
		Size:         fh.Size,
	}
	if raw := c.FormValue("appointment_id"); raw != "" {
		id, ok := parseUint(raw)
		if !ok {
			return response.BadRequest(c, "Invalid appointment_id")
		}
		input.AppointmentID = &id
	}

	file, err := fh.Open()
	if err != nil {
		return response.InternalServerError(c, err, "Failed to read upload")
	}
	defer file.Close()
	input.Content = file

	doc, err := h.documentService.Upload(c.UserContext(), actorFrom(c), input)
	if err != nil {
		return h.documentError(c, err, "Failed to upload document")
	}

	return response.Created(c, "Document uploaded successfully", doc)
}

// ListMine lists the caller's documents
// @Summary My documents
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /documents/my [get]
func (h *DocumentHandler) ListMine(c *fiber.Ctx) error {
	docs, err := h.documentService.ListMine(c.UserContext(), actorFrom(c))
	if err != nil {
		return response.InternalServerError(c, err, "Failed to list documents")
	}
	return response.Success(c, "Documents retrieved successfully", docs)
}

// Download streams a document file
// @Summary Download document
// @Tags Documents
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Response
// @Router /documents/{id}/file [get]
func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	doc, err := h.documentService.Get(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return h.documentError(c, err, "Failed to get document")
	}

	c.Set(fiber.HeaderContentType, doc.MimeType)
	return c.Download(doc.FilePath, doc.FileName)
}

// Delete removes a pending document
// @Summary Delete document
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	if err := h.documentService.Delete(c.UserContext(), actorFrom(c), id); err != nil {
		return h.documentError(c, err, "Failed to delete document")
	}

	return response.Success(c, "Document deleted successfully", nil)
}

// ListForReview lists documents by status for staff
// @Summary List documents (staff)
// @Tags Documents (Staff)
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending | verified | rejected" default(pending)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /documents [get]
func (h *DocumentHandler) ListForReview(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	docs, total, err := h.documentService.ListByStatus(c.UserContext(), c.Query("status", models.DocumentPending), params)
	if err != nil {
		return response.InternalServerError(c, err, "Failed to list documents")
	}

	return response.Paginated(c, "Documents retrieved successfully", docs, params, total)
}

// Review records a verdict on a document
// @Summary Review document (staff)
// @Tags Documents (Staff)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param body body services.ReviewInput true "verified or rejected"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /documents/{id}/review [put]
func (h *DocumentHandler) Review(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	var input services.ReviewInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	doc, err := h.documentService.Review(c.UserContext(), actorFrom(c).UserID, id, &input)
	if err != nil {
		return h.documentError(c, err, "Failed to review document")
	}

	return response.Success(c, "Document reviewed", doc)
}

func (h *DocumentHandler) documentError(c *fiber.Ctx, err error, fallback string) error {
	if ok, resp := validationFailed(c, err); ok {
		return resp
	}
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		return response.NotFound(c, "Document not found")
	case errors.Is(err, services.ErrAppointmentNotFound):
		return response.NotFound(c, "Appointment not found")
	case errors.Is(err, services.ErrForbidden):
		return response.Forbidden(c, "Appointment belongs to another record")
	case errors.Is(err, services.ErrDocumentTooLarge),
		errors.Is(err, services.ErrDocumentEmpty),
		errors.Is(err, services.ErrDocumentType),
		errors.Is(err, services.ErrDocumentReviewed),
		errors.Is(err, services.ErrInvalidReviewOutcome),
		errors.Is(err, services.ErrNoAadhaarRecord):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, err, fallback)
	}
}
