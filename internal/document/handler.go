package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"docuflow/internal/document/model"
	"docuflow/internal/document/repository"
	"docuflow/internal/document/service"
	"docuflow/pkg/logger"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

// RegisterRoutes mounts the document endpoints on r.
func (h *DocumentHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/docs", h.GetDocuments).Methods(http.MethodGet)
	r.HandleFunc("/docs", h.CreateDocument).Methods(http.MethodPost)
	r.HandleFunc("/docs/{id}", h.DeleteDocument).Methods(http.MethodDelete)
	r.HandleFunc("/docs/{id}/status", h.UpdateStatus).Methods(http.MethodPatch)
	r.HandleFunc("/docs/{id}/rename", h.RenameDocument).Methods(http.MethodPatch)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Service.ListDocuments(r.Context())
	if err != nil {
		writeError(w, err, "Error fetching documents")
		return
	}
	writeJSON(w, docs)
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDocRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, "Invalid request body", err)
		return
	}
	doc, err := req.Document()
	if err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateDocument(r.Context(), doc)
	if err != nil {
		writeError(w, err, "Handler: Failed to create document")
		return
	}
	writeJSON(w, created)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteDocument(r.Context(), id); err != nil {
		writeError(w, err, "Handler: Failed to delete document")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// UpdateStatus expects the new status as a bare JSON string, e.g. "Signed".
func (h *DocumentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	var status model.Status
	if err := decodeBody(w, r, &status); err != nil {
		writeBodyError(w, "Invalid status", err)
		return
	}

	if err := h.Service.UpdateStatus(r.Context(), id, status); err != nil {
		writeError(w, err, "Handler: Failed to update status")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// RenameDocument expects the new title as a bare JSON string.
func (h *DocumentHandler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	var title string
	if err := decodeBody(w, r, &title); err != nil {
		writeBodyError(w, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(title) == "" {
		http.Error(w, "Invalid request body: title must be a non-empty string", http.StatusBadRequest)
		return
	}

	if err := h.Service.RenameDocument(r.Context(), id, title); err != nil {
		writeError(w, err, "Handler: Failed to rename document")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 0 {
		http.Error(w, "Invalid document id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeBody reads exactly one JSON value into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func writeBodyError(w http.ResponseWriter, msg string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, msg+": "+err.Error(), http.StatusBadRequest)
}

// writeError maps store errors to status codes. Only the classification
// reaches the client; the full error is logged.
func writeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Document not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrConflict):
		http.Error(w, "Document with this id already exists", http.StatusConflict)
	case errors.Is(err, model.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		logger.Sugar.Errorf("%s: %v", action, err)
		http.Error(w, "Storage timed out", http.StatusServiceUnavailable)
	default:
		logger.Sugar.Errorf("%s: %v", action, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}
