package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/application/analysis"
	appchat "github.com/bryanwahyu/radiology-ai/internal/application/chat"
	"github.com/bryanwahyu/radiology-ai/internal/application/clinical"
	"github.com/bryanwahyu/radiology-ai/internal/application/profile"
	appscans "github.com/bryanwahyu/radiology-ai/internal/application/scans"
	apptopic "github.com/bryanwahyu/radiology-ai/internal/application/topic"
	domai "github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	"github.com/bryanwahyu/radiology-ai/internal/domain/chat"
	"github.com/bryanwahyu/radiology-ai/internal/domain/reports"
	domain "github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
	"github.com/bryanwahyu/radiology-ai/internal/middleware"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Deps is everything the router serves.
type Deps struct {
	Scans    *appscans.Service
	Profile  *profile.Service
	Chat     *appchat.Service
	Topic    *apptopic.Service
	Clinical *clinical.Service

	Credentials []middleware.Credential
	Limiter     *middleware.RateLimiter
	Metrics     interface {
		middleware.HTTPRecorder
		Handler() http.Handler
	}
	Health      map[string]middleware.HealthChecker
	CORSOrigins []string
	// MaxUploadBytes caps the multipart body of a scan upload.
	MaxUploadBytes int64
	Log            logging.Logger
}

type Router struct {
	scans     *appscans.Service
	profile   *profile.Service
	chat      *appchat.Service
	topic     *apptopic.Service
	clinical  *clinical.Service
	maxUpload int64
	log       logging.Logger
}

func NewRouter(d Deps) http.Handler {
	r := &Router{
		scans:     d.Scans,
		profile:   d.Profile,
		chat:      d.Chat,
		topic:     d.Topic,
		clinical:  d.Clinical,
		maxUpload: d.MaxUploadBytes,
		log:       d.Log,
	}
	if r.log == nil {
		r.log = logging.Default()
	}
	if r.maxUpload <= 0 {
		r.maxUpload = 10 << 20
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.RequestLogger(r.log))
	mux.Use(chimw.Recoverer)
	if d.Metrics != nil {
		mux.Use(middleware.Metrics(d.Metrics))
	}
	if len(d.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Get("/healthz", middleware.HealthHandler(d.Health))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(d.Credentials))
		if d.Limiter != nil {
			rt.Use(middleware.RateLimit(d.Limiter))
		}

		rt.Route("/patients/{patient}", func(pr chi.Router) {
			pr.Use(middleware.RequirePatientAccess("patient"))
			pr.Post("/scans", r.wrap(r.handleUpload))
			pr.Get("/scans", r.wrap(r.handleList))
			pr.Post("/scans/analyze", r.wrap(r.handleAnalyzeAll))
			pr.Get("/scans/{id}", r.wrap(r.handleGet))
			pr.Post("/scans/{id}/analyze", r.wrap(r.handleAnalyzeOne))
			pr.Get("/risk-profile", r.wrap(r.handleRiskProfile))
			pr.Get("/latest-scan-risk", r.wrap(r.handleLatestRisk))
			if r.clinical != nil {
				pr.Get("/health-summary", r.wrap(r.handleHealthSummary))
				pr.Get("/reports", r.wrap(r.handlePatientReports))
				pr.With(middleware.RequireRole(application.RoleDoctor)).Post("/reports", r.wrap(r.handleGenerateReport))
				pr.With(middleware.RequireRole(application.RoleDoctor)).Post("/medicine-suggestions", r.wrap(r.handlePatientMedicines))
			}
		})

		if r.clinical != nil {
			rt.Post("/ai/classify-disease", r.wrap(r.handleClassifyDisease))
			rt.Post("/ai/suggest-medicines", r.wrap(r.handleSuggestMedicines))
			rt.Post("/ai/assess-risk", r.wrap(r.handleAssessRisk))
			rt.With(middleware.RequireRole(application.RoleDoctor, application.RoleAdmin)).Get("/reports/pending", r.wrap(r.handlePendingReports))
			rt.With(middleware.RequireRole(application.RoleDoctor)).Put("/reports/{report}/validate", r.wrap(r.handleValidateReport))
		}

		rt.Post("/chat", r.wrap(r.handleChat))
		rt.Post("/chat/scan", r.wrap(r.handleScanChat))
		rt.Get("/chat/sessions", r.wrap(r.handleSessions))
		rt.Get("/chat/sessions/{session}/messages", r.wrap(r.handleMessages))
		rt.Post("/topic/classify", r.wrap(r.handleClassify))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		if status >= 500 {
			r.log.Error("request failed",
				logging.String("path", req.URL.Path),
				logging.String("request_id", chimw.GetReqID(req.Context())),
				logging.Err(err),
			)
		}
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
		writeJSON(w, status, map[string]string{"error": msg})
	}
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, sql.ErrNoRows),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, chat.ErrSessionNotFound),
		errors.Is(err, profile.ErrNoScans),
		errors.Is(err, reports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, reports.ErrInvalidStatus),
		errors.Is(err, clinical.ErrInvalidInput),
		errors.Is(err, clinical.ErrClassificationRequired),
		errors.Is(err, domain.ErrInvalidModality),
		errors.Is(err, domain.ErrInvalidFileType):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, profile.ErrAnalysisUnavailable),
		errors.Is(err, clinical.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(req *http.Request, v any) error {
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func principal(req *http.Request) application.Principal {
	p, _ := middleware.PrincipalFromContext(req.Context())
	return p
}

func scanID(req *http.Request) (domain.ScanID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateResourceID("scan", id); err != nil {
		return "", badRequest("%v", err)
	}
	return domain.ScanID(id), nil
}

// POST /v1/patients/{patient}/scans (multipart: file, modality, description)
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("invalid multipart form: %v", err)
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequest("file is required")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("%w: content type %s", domain.ErrInvalidFileType, contentType)
	}

	cmd := appscans.UploadCommand{
		PatientID:   chi.URLParam(req, "patient"),
		Modality:    req.FormValue("modality"),
		Description: middleware.SanitizeString(req.FormValue("description")),
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}
	if p := principal(req); p.Role == application.RoleDoctor {
		cmd.DoctorID = p.Subject
	}

	scan, err := r.scans.Upload(req.Context(), cmd)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, scan)
	return nil
}

// GET /v1/patients/{patient}/scans?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page := middleware.ParseIntDefault(q.Get("page"), 1)
	size := middleware.ValidatePageSize(middleware.ParseIntDefault(q.Get("page_size"), 20))

	res, err := r.scans.List(req.Context(), chi.URLParam(req, "patient"), page, size)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/patients/{patient}/scans/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	scan, err := r.scans.Get(req.Context(), chi.URLParam(req, "patient"), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, scan)
	return nil
}

// POST /v1/patients/{patient}/scans/{id}/analyze?force=true
func (r *Router) handleAnalyzeOne(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	force := middleware.ParseBool(req.URL.Query().Get("force"))

	scan, out, err := r.scans.AnalyzeOne(req.Context(), chi.URLParam(req, "patient"), id, force)
	if err != nil {
		return err
	}
	if out.Status == analysis.StatusFailed && errors.Is(out.Err, domai.ErrQuotaExceeded) {
		return out.Err
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scan":    scan,
		"outcome": out,
	})
	return nil
}

// POST /v1/patients/{patient}/scans/analyze  body {"force": false, "limit": 0}
func (r *Router) handleAnalyzeAll(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Force bool `json:"force"`
		Limit int  `json:"limit"`
	}
	if req.ContentLength != 0 {
		if err := decode(req, &body); err != nil {
			return err
		}
	}
	if body.Limit < 0 {
		return badRequest("limit must not be negative")
	}

	res, err := r.scans.AnalyzeAll(req.Context(), chi.URLParam(req, "patient"), body.Force, body.Limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/patients/{patient}/risk-profile
func (r *Router) handleRiskProfile(w http.ResponseWriter, req *http.Request) error {
	rep, err := r.profile.RiskProfile(req.Context(), chi.URLParam(req, "patient"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rep)
	return nil
}

// GET /v1/patients/{patient}/latest-scan-risk
func (r *Router) handleLatestRisk(w http.ResponseWriter, req *http.Request) error {
	res, err := r.profile.LatestScanRisk(req.Context(), chi.URLParam(req, "patient"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

type chatBody struct {
	SessionID string `json:"session_id"`
	ScanID    string `json:"scan_id"`
	Message   string `json:"message"`
}

// POST /v1/chat
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) error {
	var body chatBody
	if err := decode(req, &body); err != nil {
		return err
	}
	return r.sendChat(w, req, body, "")
}

// POST /v1/chat/scan
func (r *Router) handleScanChat(w http.ResponseWriter, req *http.Request) error {
	var body chatBody
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateResourceID("scan", body.ScanID); err != nil {
		return badRequest("%v", err)
	}
	return r.sendChat(w, req, body, domain.ScanID(body.ScanID))
}

func (r *Router) sendChat(w http.ResponseWriter, req *http.Request, body chatBody, scan domain.ScanID) error {
	if body.SessionID != "" {
		if err := middleware.ValidateResourceID("session", body.SessionID); err != nil {
			return badRequest("%v", err)
		}
	}
	reply, err := r.chat.Send(req.Context(), appchat.SendCommand{
		Principal: principal(req),
		SessionID: chat.SessionID(body.SessionID),
		Message:   body.Message,
		ScanID:    scan,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, reply)
	return nil
}

// GET /v1/chat/sessions?limit=
func (r *Router) handleSessions(w http.ResponseWriter, req *http.Request) error {
	limit := middleware.ValidatePageSize(middleware.ParseIntDefault(req.URL.Query().Get("limit"), 20))
	list, err := r.chat.Sessions(req.Context(), principal(req), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*chat.Session{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/chat/sessions/{session}/messages
func (r *Router) handleMessages(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "session")
	if err := middleware.ValidateResourceID("session", id); err != nil {
		return badRequest("%v", err)
	}
	msgs, err := r.chat.Messages(req.Context(), principal(req), chat.SessionID(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   msgs,
	})
	return nil
}

// POST /v1/topic/classify  body {"message": "..."}
func (r *Router) handleClassify(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	v := r.topic.Classify(body.Message)
	writeJSON(w, http.StatusOK, map[string]any{
		"verdict":          v,
		"redirect_message": redirectFor(v.InDomain, r.topic),
		"classified_at":    time.Now().UTC(),
	})
	return nil
}

func redirectFor(inDomain bool, t *apptopic.Service) string {
	if inDomain {
		return ""
	}
	return t.Gate.RedirectMessage()
}
