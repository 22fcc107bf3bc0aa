package workflow

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"benefits-backend/internal/documents"
	"benefits-backend/internal/shared/server/middleware"
	"benefits-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the workflow service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches workflow routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications/:appID/submit", h.submit)
	rg.GET("/applications/:appID/status", h.status)
}

type submitResponse struct {
	Submitted []documents.DocumentResponse `json:"submitted"`
	Skipped   []documents.DocumentResponse `json:"skipped"`
	Failed    []SubmitFailure              `json:"failed"`
}

func (h *Handler) submit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	appID := c.Param("appID")
	requestID := middleware.RequestIDFromContext(c)

	result, err := h.Svc.SubmitAll(c.Request.Context(), userID, appID, requestID)
	if err != nil {
		var missing *MissingRequiredError
		switch {
		case errors.As(err, &missing):
			respond.Error(c, http.StatusBadRequest, "missing_documents", missing.Error(), missing.Missing)
		case errors.Is(err, documents.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case documents.IsStorageError(err):
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to submit documents, retry the request", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit documents", nil)
		}
		return
	}

	resp := submitResponse{
		Submitted: make([]documents.DocumentResponse, 0, len(result.Submitted)),
		Skipped:   make([]documents.DocumentResponse, 0, len(result.Skipped)),
		Failed:    result.Failed,
	}
	if resp.Failed == nil {
		resp.Failed = []SubmitFailure{}
	}
	for _, doc := range result.Submitted {
		resp.Submitted = append(resp.Submitted, documents.ToResponse(doc))
	}
	for _, doc := range result.Skipped {
		resp.Skipped = append(resp.Skipped, documents.ToResponse(doc))
	}

	c.Set("statusTransition", string(documents.StatusSubmitted))
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	appID := c.Param("appID")

	summary, err := h.Svc.Summarize(c.Request.Context(), userID, appID)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case documents.IsStorageError(err):
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to compute status, retry the request", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute status", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, summary)
}
