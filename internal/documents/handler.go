package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"benefits-backend/internal/shared/server/middleware"
	"benefits-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications/:appID/documents", h.upload)
	rg.GET("/applications/:appID/documents", h.list)
	rg.GET("/applications/:appID/documents/:docID", h.get)
	rg.POST("/applications/:appID/documents/:docID/reset", h.reset)
	rg.DELETE("/applications/:appID/documents/:docID", h.remove)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	appID := c.Param("appID")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	docType, err := ParseDocType(c.PostForm("type"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown document type", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), userID, docType, appID, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case IsStorageError(err):
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to store document, retry the upload", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusCreated, ToResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	appID := c.Param("appID")

	docs, err := h.Svc.List(c.Request.Context(), userID, appID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		}
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, ToResponse(doc))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	doc, err := h.Svc.Get(c.Request.Context(), userID, c.Param("docID"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, ToResponse(doc))
}

func (h *Handler) reset(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	doc, err := h.Svc.Reset(c.Request.Context(), userID, c.Param("docID"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case IsStorageError(err):
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to reset document, retry the request", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to reset document", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	c.Set("statusTransition", string(doc.Status))
	respond.JSON(c, http.StatusOK, ToResponse(doc))
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	found, err := h.Svc.Delete(c.Request.Context(), userID, c.Param("docID"))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to delete document, retry the request", nil)
		return
	}
	if !found {
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		return
	}

	c.Status(http.StatusNoContent)
}
