package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "attendcalc/internal/errors"
	"attendcalc/internal/exporter"
	"attendcalc/internal/middleware"
	"attendcalc/internal/services"
)

// DefaultMaxUploadBytes caps uploaded schedule files.
const DefaultMaxUploadBytes = 10 << 20

// FetchRequest asks the server to download a configured source
type FetchRequest struct {
	Source string `json:"source" validate:"required,max=100"`
}

// ReportRequest asks for an attendance report
type ReportRequest struct {
	Module string `json:"module" validate:"required,modulecode"`
	Missed *int   `json:"missed" validate:"required,gte=0"`
}

// MappingRequest records a label to module code mapping
type MappingRequest struct {
	Key  string `json:"key" validate:"required,max=200"`
	Code string `json:"code" validate:"required,modulecode"`
}

// AttendanceHandler serves schedules, reports and mappings
type AttendanceHandler struct {
	service        AttendanceService
	validator      *middleware.Validator
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewAttendanceHandler creates the handler. A non-positive maxUploadBytes
// uses DefaultMaxUploadBytes.
func NewAttendanceHandler(service AttendanceService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger, maxUploadBytes int64) *AttendanceHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &AttendanceHandler{
		service:        service,
		validator:      middleware.NewValidator(),
		errorHandler:   errorHandler,
		logger:         logger.With(slog.String("component", "attendance_handler")),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the attendance routes, mounted under /api
func (h *AttendanceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/sources", h.ListSources)

	r.Route("/schedules", func(r chi.Router) {
		r.Post("/", h.UploadSchedule)
		r.Post("/fetch", h.FetchSchedule)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSchedule)
			r.Get("/modules", h.ListModules)
			r.Get("/unmapped", h.ListUnmapped)
			r.Get("/exams", h.ListExams)
			r.Get("/modules/{code}/sessions", h.GetSessions)
			r.Get("/modules/{code}/export", h.ExportSessions)
			r.Post("/report", h.CreateReport)
		})
	})

	r.Route("/mappings", func(r chi.Router) {
		r.Get("/", h.ListMappings)
		r.Post("/", h.RecordMapping)
	})

	return r
}

// ListSources handles GET /api/sources
func (h *AttendanceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources := h.service.Sources()
	renderList(w, r, sources, len(sources))
}

// UploadSchedule handles POST /api/schedules with a multipart "file" field
func (h *AttendanceHandler) UploadSchedule(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadBytes {
		h.errorHandler.HandleError(w, r, h.tooLarge())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, h.tooLarge())
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "multipart field file is required"))
		return
	}
	defer file.Close()

	summary, err := h.service.LoadSchedule(r.Context(), header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "schedule uploaded",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("id", summary.ID),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size))

	render.Status(r, http.StatusCreated)
	renderObject(w, r, summary)
}

func (h *AttendanceHandler) tooLarge() error {
	return apierrors.NewWithDetails(
		http.StatusRequestEntityTooLarge,
		"PAYLOAD_TOO_LARGE",
		"Schedule file exceeds the upload limit",
		map[string]int64{"max_size": h.maxUploadBytes},
	)
}

// FetchSchedule handles POST /api/schedules/fetch
func (h *AttendanceHandler) FetchSchedule(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.FetchSource(r.Context(), req.Source)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	renderObject(w, r, summary)
}

// GetSchedule handles GET /api/schedules/{id}
func (h *AttendanceHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Schedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	renderObject(w, r, summary)
}

// ListModules handles GET /api/schedules/{id}/modules
func (h *AttendanceHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.service.Modules(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	renderList(w, r, modules, len(modules))
}

// ListUnmapped handles GET /api/schedules/{id}/unmapped
func (h *AttendanceHandler) ListUnmapped(w http.ResponseWriter, r *http.Request) {
	unmapped, err := h.service.Unmapped(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	renderList(w, r, unmapped, len(unmapped))
}

// ListExams handles GET /api/schedules/{id}/exams
func (h *AttendanceHandler) ListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.service.Exams(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	renderList(w, r, exams, len(exams))
}

// GetSessions handles GET /api/schedules/{id}/modules/{code}/sessions
func (h *AttendanceHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.Sessions(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "code"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	renderObject(w, r, sessions)
}

// ExportSessions handles GET /api/schedules/{id}/modules/{code}/export
func (h *AttendanceHandler) ExportSessions(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	// Buffered so a failure can still be rendered as a problem response
	var buf bytes.Buffer
	if err := h.service.ExportSessions(r.Context(), chi.URLParam(r, "id"), code, &buf); err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exporter.SessionsFileName(code)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// CreateReport handles POST /api/schedules/{id}/report
func (h *AttendanceHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Report(r.Context(), chi.URLParam(r, "id"), req.Module, *req.Missed)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	renderObject(w, r, result)
}

// ListMappings handles GET /api/mappings
func (h *AttendanceHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	mappings := h.service.Mappings(r.Context())
	renderList(w, r, mappings, len(mappings))
}

// RecordMapping handles POST /api/mappings
func (h *AttendanceHandler) RecordMapping(w http.ResponseWriter, r *http.Request) {
	var req MappingRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	entry, err := h.service.RecordMapping(r.Context(), req.Key, req.Code)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	renderObject(w, r, entry)
}

// mapServiceError converts service sentinels into API errors; everything
// else is left for the error handler's AppError mapping.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrScheduleNotFound):
		return apierrors.ErrScheduleNotFound
	case errors.Is(err, services.ErrSourceNotFound):
		return apierrors.ErrSourceNotFound
	default:
		return err
	}
}

func renderObject(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

func renderList(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  count,
	})
}
