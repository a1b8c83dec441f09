package http

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/repairops/internal/application"
)

// FileHandler serves upload download and deletion.
type FileHandler struct {
	files     *application.FileService
	publisher Publisher
	responder responder
	logger    *slog.Logger
}

// NewFileHandler constructs a FileHandler.
func NewFileHandler(files *application.FileService, publisher Publisher, logger *slog.Logger) *FileHandler {
	logger = defaultLogger(logger)
	return &FileHandler{
		files:     files,
		publisher: publisher,
		responder: newResponder(logger),
		logger:    logger,
	}
}

// Download streams the stored bytes of an upload.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, reader, err := h.files.Open(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	defer reader.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		handlerLogger(ctx, h.logger, "file", "download").Error("failed to stream file", "error", err, "fileId", file.ID)
	}
}

// Delete removes an upload.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.files.Delete(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("file", id, "deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}
