package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"bpmnvalidator/app/usecase"
	"bpmnvalidator/internal/domain/entity"
	"bpmnvalidator/internal/infrastructure/metrics"
)

const (
	FileField             = "file"
	RequestIDHeader       = "X-Request-ID"
	DefaultMaxUploadBytes = 32 << 20

	noErrorsMessage = "No errors found"
	// multipart parts above this size spill to disk
	formMemoryBytes = 1 << 20
)

var (
	errUploadTooLarge = errors.New("upload too large")
	errBadForm        = errors.New("malformed multipart form")
	errNotFound       = errors.New("not found")
	errMethod         = errors.New("method not allowed")
)

type ValidatorHandler struct {
	validationService usecase.ValidationUsecase
	healthService     usecase.HealthUsecase
	logger            *slog.Logger
	maxUploadBytes    int64
}

func NewValidatorHandler(
	validationService usecase.ValidationUsecase,
	healthService usecase.HealthUsecase,
	maxUploadBytes int64,
	logger *slog.Logger,
) *ValidatorHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ValidatorHandler{
		validationService: validationService,
		healthService:     healthService,
		logger:            logger,
		maxUploadBytes:    maxUploadBytes,
	}
}

// Middleware для метрик
func (h *ValidatorHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)
		metrics.ObserveRequest(r.Method, r.URL.Path, rw.status, time.Since(start))
	}
}

func (h *ValidatorHandler) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next(w, r.WithContext(usecase.WithRequestID(r.Context(), id)))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *ValidatorHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/validate", h.withRequestID(h.withMetrics(h.handleValidate))).Methods(http.MethodPost)
	r.HandleFunc("/health", h.withRequestID(h.withMetrics(h.handleHealth))).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

type errorResponse struct {
	Error string `json:"error"`
}

type passedResponse struct {
	Message string `json:"message"`
}

type findingsResponse struct {
	Errors     string `json:"errors"`
	ReturnCode int    `json:"return_code"`
}

// POST /validate
func (h *ValidatorHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	upload, err := h.readUpload(r)
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: limit is %d bytes", errUploadTooLarge, tooLarge.Limit))
		case errors.Is(err, entity.ErrMissingFile):
			// Routed through the service so the rejection is counted like any other outcome.
			h.writeOutcome(w, r, h.validationService.Validate(r.Context(), nil))
		default:
			h.logger.Warn("parse upload failed", "request_id", usecase.RequestID(r.Context()), "err", err)
			writeError(w, http.StatusBadRequest, errBadForm)
		}
		return
	}
	if c, ok := upload.Content.(io.Closer); ok {
		defer c.Close()
	}

	h.writeOutcome(w, r, h.validationService.Validate(r.Context(), upload))
}

// readUpload returns the file part of the form. A request without a file
// part, including a non-multipart request, is reported as ErrMissingFile.
func (h *ValidatorHandler) readUpload(r *http.Request) (*entity.Upload, error) {
	if err := r.ParseMultipartForm(formMemoryBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, entity.ErrMissingFile
		}
		return nil, err
	}

	file, header, err := r.FormFile(FileField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, entity.ErrMissingFile
	}
	if err != nil {
		return nil, err
	}
	return entity.NewUpload(header.Filename, header.Size, file), nil
}

// writeOutcome maps an outcome to the response. Lint findings are a normal
// 200 response; only failures to lint use error statuses.
func (h *ValidatorHandler) writeOutcome(w http.ResponseWriter, r *http.Request, out entity.Outcome) {
	switch out.Kind {
	case entity.OutcomePassed:
		writeJSON(w, http.StatusOK, passedResponse{Message: noErrorsMessage})
	case entity.OutcomeFindings:
		writeJSON(w, http.StatusOK, findingsResponse{Errors: out.Diagnostics, ReturnCode: out.ExitCode})
	case entity.OutcomeMissingFile:
		writeError(w, http.StatusBadRequest, entity.ErrMissingFile)
	case entity.OutcomeUnsupportedType:
		writeError(w, http.StatusBadRequest, out.Err)
	case entity.OutcomeTimeout:
		writeError(w, http.StatusRequestTimeout, entity.ErrTimeout)
	case entity.OutcomeToolUnavailable:
		writeError(w, http.StatusInternalServerError, entity.ErrToolUnavailable)
	default:
		h.logger.Error("validation failed", "request_id", usecase.RequestID(r.Context()), "err", out.Err)
		writeError(w, http.StatusInternalServerError, entity.ErrInternal)
	}
}

// GET /health
func (h *ValidatorHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.healthService.Check(r.Context()))
}
