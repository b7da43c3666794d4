package http

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "poscope/internal/errors"
	"poscope/internal/services"
)

// Multipart field names of the upload routes
const (
	FieldFiles = "files"
	FieldFile  = "file"
)

// multipartMemory bounds the part of a multipart body held in memory
const multipartMemory = 32 << 20

// UploadHandler receives the POS archives, the syllabus workbook and the calendar
type UploadHandler struct {
	service      UploadServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(service UploadServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *UploadHandler {
	return &UploadHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "upload_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the upload routes
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/pos", h.UploadPOS)
	r.Post("/syllabus", h.UploadSyllabus)
	r.Post("/calendar", h.UploadCalendar)
	return r
}

// UploadPOS handles POST .../uploads/pos with one or more zip archives
func (h *UploadHandler) UploadPOS(w http.ResponseWriter, r *http.Request) {
	files, err := h.readFiles(r, FieldFiles)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.UploadPOS(r.Context(), sessionID(r), files)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// UploadSyllabus handles POST .../uploads/syllabus
func (h *UploadHandler) UploadSyllabus(w http.ResponseWriter, r *http.Request) {
	file, err := h.readFile(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.UploadSyllabus(r.Context(), sessionID(r), file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// UploadCalendar handles POST .../uploads/calendar
func (h *UploadHandler) UploadCalendar(w http.ResponseWriter, r *http.Request) {
	file, err := h.readFile(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.UploadCalendar(r.Context(), sessionID(r), file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

func (h *UploadHandler) readFile(r *http.Request) (services.UploadedFile, error) {
	files, err := h.readFiles(r, FieldFile)
	if err != nil {
		return services.UploadedFile{}, err
	}
	if len(files) != 1 {
		return services.UploadedFile{}, apierrors.ErrValidation(FieldFile, "ファイルは1つだけ選択してください")
	}
	return files[0], nil
}

// readFiles reads every part of a multipart field into memory
func (h *UploadHandler) readFiles(r *http.Request, field string) ([]services.UploadedFile, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierrors.ErrPayloadTooLarge
		}
		h.logger.WarnContext(r.Context(), "invalid multipart body", slog.String("error", err.Error()))
		return nil, apierrors.ErrInvalidRequest
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, apierrors.ErrMissingFile
	}

	out := make([]services.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, services.UploadedFile{Name: fh.Filename, Data: data})
	}

	h.logger.DebugContext(r.Context(), "multipart files received",
		slog.String("field", field),
		slog.Int("files", len(out)))
	return out, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}
	return data, nil
}
