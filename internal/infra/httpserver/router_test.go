package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/application/analysis"
	appchat "github.com/bryanwahyu/radiology-ai/internal/application/chat"
	"github.com/bryanwahyu/radiology-ai/internal/application/clinical"
	"github.com/bryanwahyu/radiology-ai/internal/application/profile"
	appscans "github.com/bryanwahyu/radiology-ai/internal/application/scans"
	apptopic "github.com/bryanwahyu/radiology-ai/internal/application/topic"
	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	"github.com/bryanwahyu/radiology-ai/internal/domain/chat"
	"github.com/bryanwahyu/radiology-ai/internal/domain/reports"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/domain/topic"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
	"github.com/bryanwahyu/radiology-ai/internal/infra/metrics"
	"github.com/bryanwahyu/radiology-ai/internal/middleware"
)

type memScans struct {
	mu    sync.Mutex
	items map[scans.ScanID]scans.Scan
}

func (m *memScans) Save(_ context.Context, s *scans.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = *s
	return nil
}

func (m *memScans) Get(_ context.Context, patientID string, id scans.ScanID) (*scans.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok || s.PatientID != patientID {
		return nil, scans.ErrNotFound
	}
	return &s, nil
}

func (m *memScans) GetByID(_ context.Context, id scans.ScanID) (*scans.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, scans.ErrNotFound
	}
	return &s, nil
}

func (m *memScans) ListByPatient(_ context.Context, patientID string, limit int) ([]*scans.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*scans.Scan
	for _, s := range m.items {
		if s.PatientID == patientID {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memScans) Paginate(ctx context.Context, patientID string, page, pageSize int) (scans.PaginatedResult, error) {
	all, _ := m.ListByPatient(ctx, patientID, 0)
	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := min(start+pageSize, len(all))
	return scans.NewPage(all[start:end], page, pageSize, int64(len(all))), nil
}

func (m *memScans) SaveFinding(_ context.Context, id scans.ScanID, f *scans.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return scans.ErrNotFound
	}
	s.Finding = f
	m.items[id] = s
	return nil
}

type memChat struct {
	mu       sync.Mutex
	sessions map[chat.SessionID]*chat.Session
	messages map[chat.SessionID][]*chat.Message
}

func (m *memChat) CreateSession(_ context.Context, s *chat.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memChat) GetSession(_ context.Context, owner string, id chat.SessionID) (*chat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.OwnerID != owner {
		return nil, chat.ErrSessionNotFound
	}
	return s, nil
}

func (m *memChat) ListSessions(_ context.Context, owner string, _ int) ([]*chat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*chat.Session
	for _, s := range m.sessions {
		if s.OwnerID == owner {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memChat) AppendMessage(_ context.Context, msg *chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *memChat) Messages(_ context.Context, id chat.SessionID, limit int) ([]*chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[id]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]*chat.Message(nil), all...), nil
}

type memReports struct {
	mu    sync.Mutex
	items []*reports.Report
}

func (m *memReports) Save(_ context.Context, r *reports.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, r)
	return nil
}

func (m *memReports) Get(_ context.Context, id reports.ReportID) (*reports.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, reports.ErrNotFound
}

func (m *memReports) Update(_ context.Context, r *reports.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.items {
		if cur.ID == r.ID {
			m.items[i] = r
			return nil
		}
	}
	return reports.ErrNotFound
}

func (m *memReports) ListByPatient(_ context.Context, patientID string, _ int) ([]*reports.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*reports.Report
	for _, r := range m.items {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReports) ListPending(_ context.Context, _, _ int) ([]*reports.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*reports.Report
	for _, r := range m.items {
		if r.Status == reports.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

type nopImages struct{}

func (nopImages) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	_, err := io.Copy(io.Discard, r)
	return "radiology/" + key, err
}

func (nopImages) Remove(context.Context, string) error { return nil }

type stubAI struct {
	analyze  func(ai.AnalysisRequest) (string, error)
	generate string
}

func (s stubAI) Analyze(_ context.Context, req ai.AnalysisRequest) (string, error) { return s.analyze(req) }
func (s stubAI) Generate(context.Context, string) (string, error)                  { return s.generate, nil }

var testLexicon = topic.Lexicon{
	InDomain:    []string{"pain", "scan", "chest", "x-ray"},
	OutOfDomain: []string{"machine learning", "football"},
	Patterns:    []string{"what", "why", "how"},
	MinTokens:   3,
}

type fixture struct {
	handler http.Handler
	scans   *memScans
	clock   time.Time
}

func newFixture(t *testing.T, analyze func(ai.AnalysisRequest) (string, error)) *fixture {
	t.Helper()
	gate, err := topic.NewGate(testLexicon)
	require.NoError(t, err)

	log := logging.NewNopLogger()
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	clock := application.FixedClock(now)
	model := stubAI{analyze: analyze, generate: "Chest pain has many causes; please see a doctor."}
	repo := &memScans{items: map[scans.ScanID]scans.Scan{}}
	orch := &analysis.Orchestrator{Analyzer: model, Scans: repo, Clock: clock, Log: log, Concurrency: 2, Timeout: time.Second}
	topicSvc := &apptopic.Service{Gate: gate, Log: log}

	h := NewRouter(Deps{
		Scans:   &appscans.Service{Repo: repo, Images: nopImages{}, Analysis: orch, Clock: clock, Log: log, AllowedExtensions: []string{"png", "jpg"}},
		Profile: &profile.Service{Scans: repo, Analysis: orch, Clock: clock, Log: log},
		Chat: &appchat.Service{
			Repo:      &memChat{sessions: map[chat.SessionID]*chat.Session{}, messages: map[chat.SessionID][]*chat.Message{}},
			Scans:     repo,
			Topic:     topicSvc,
			Generator: model,
			Clock:     clock,
			Log:       log,
		},
		Topic: topicSvc,
		Clinical: &clinical.Service{
			Generator: model,
			Scans:     repo,
			Reports:   &memReports{},
			Analysis:  orch,
			Clock:     clock,
			Log:       log,
		},
		Credentials: []middleware.Credential{
			{Key: "pat", Principal: application.Principal{Subject: "p1", Role: application.RolePatient}},
			{Key: "doc", Principal: application.Principal{Subject: "d1", Role: application.RoleDoctor}},
			{Key: "adm", Principal: application.Principal{Subject: "a1", Role: application.RoleAdmin}},
		},
		Metrics: metrics.NewManager(),
		Health:  map[string]middleware.HealthChecker{},
		Log:     log,
	})
	return &fixture{handler: h, scans: repo, clock: now}
}

func (f *fixture) do(t *testing.T, method, path, key string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) json(t *testing.T, method, path, key, body string) *httptest.ResponseRecorder {
	return f.do(t, method, path, key, strings.NewReader(body), "application/json")
}

func (f *fixture) seed(id, patient string, age time.Duration, finding *scans.Finding) {
	_ = f.scans.Save(context.Background(), &scans.Scan{
		ID: scans.ScanID(id), PatientID: patient, Modality: scans.ModalityXRay,
		ImageRef: patient + "/xray/" + id + ".png", UploadedAt: f.clock.Add(-age), Finding: finding,
	})
}

func multipartBody(t *testing.T, filename, modality string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, w.WriteField("modality", modality))
	require.NoError(t, w.WriteField("description", "chest PA"))
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), rec.Body.String())
}

func highReply(ai.AnalysisRequest) (string, error) {
	return "```json\n{\"risk_level\": \"severe\", \"confidence_score\": 0.8, \"disease_classification\": \"Pneumonia\"}\n```", nil
}

func TestHealthAndAuth(t *testing.T) {
	f := newFixture(t, highReply)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", nil, "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", nil, "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/livez", "", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/patients/p1/scans", "", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/v1/patients/p2/scans", "pat", nil, "").Code)
}

func TestUploadListGet(t *testing.T) {
	f := newFixture(t, highReply)

	body, ct := multipartBody(t, "chest.PNG", "X-Ray")
	rec := f.do(t, http.MethodPost, "/v1/patients/p1/scans", "doc", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created scans.Scan
	decodeBody(t, rec, &created)
	assert.Equal(t, scans.ModalityXRay, created.Modality)
	assert.Equal(t, "d1", created.DoctorID)
	assert.True(t, strings.HasPrefix(created.ImageRef, "p1/xray/"))
	assert.Nil(t, created.Finding)

	rec = f.do(t, http.MethodGet, "/v1/patients/p1/scans?page=1&page_size=5", "pat", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page scans.PaginatedResult
	decodeBody(t, rec, &page)
	assert.Equal(t, int64(1), page.Total)

	rec = f.do(t, http.MethodGet, "/v1/patients/p1/scans/"+string(created.ID), "pat", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/patients/p1/scans/unknown", "pat", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_Rejects(t *testing.T) {
	f := newFixture(t, highReply)

	body, ct := multipartBody(t, "scan.png", "sonar")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/patients/p1/scans", "pat", body, ct).Code)

	body, ct = multipartBody(t, "scan.gif", "ct")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/patients/p1/scans", "pat", body, ct).Code)
}

func TestRiskProfile(t *testing.T) {
	f := newFixture(t, highReply)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/patients/p1/risk-profile", "pat", nil, "").Code)

	low := &scans.Finding{Risk: scans.RiskLow, Classification: "Normal", Abnormalities: []scans.Abnormality{}}
	f.seed("s1", "p1", 2*time.Hour, low)
	f.seed("s2", "p1", time.Hour, nil)

	rec := f.do(t, http.MethodGet, "/v1/patients/p1/risk-profile", "pat", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep struct {
		Profile struct {
			Overall string `json:"overall_risk_level"`
		} `json:"risk_profile"`
		AutoAnalysis struct {
			Summary string `json:"summary"`
		} `json:"auto_analysis"`
		Unanalyzed int `json:"unanalyzed_scans"`
	}
	decodeBody(t, rec, &rep)
	assert.Equal(t, "HIGH", rep.Profile.Overall)
	assert.Equal(t, "1 succeeded, 0 failed", rep.AutoAnalysis.Summary)
	assert.Zero(t, rep.Unanalyzed)
}

func TestLatestScanRisk_Unavailable(t *testing.T) {
	f := newFixture(t, func(ai.AnalysisRequest) (string, error) { return "", assert.AnError })
	f.seed("s1", "p1", time.Hour, nil)

	rec := f.do(t, http.MethodGet, "/v1/patients/p1/latest-scan-risk", "pat", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyzeOne_Quota(t *testing.T) {
	f := newFixture(t, func(ai.AnalysisRequest) (string, error) { return "", ai.ErrQuotaExceeded })
	f.seed("s1", "p1", time.Hour, nil)

	rec := f.do(t, http.MethodPost, "/v1/patients/p1/scans/s1/analyze", "pat", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAnalyzeAll(t *testing.T) {
	f := newFixture(t, highReply)
	f.seed("s1", "p1", 3*time.Hour, nil)
	f.seed("s2", "p1", 2*time.Hour, nil)
	f.seed("s3", "p1", time.Hour, nil)

	rec := f.json(t, http.MethodPost, "/v1/patients/p1/scans/analyze", "doc", `{"limit": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res analysis.BatchResult
	decodeBody(t, rec, &res)
	assert.Equal(t, 2, res.Analyzed)
	assert.Equal(t, 1, res.Deferred)

	rec = f.json(t, http.MethodPost, "/v1/patients/p1/scans/analyze", "doc", `{"limit": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat(t *testing.T) {
	f := newFixture(t, highReply)

	rec := f.json(t, http.MethodPost, "/v1/chat", "pat", `{"message": "What causes chest pain?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reply struct {
		SessionID string `json:"session_id"`
		Kind      string `json:"kind"`
	}
	decodeBody(t, rec, &reply)
	assert.Equal(t, appchat.KindAnswer, reply.Kind)
	require.NotEmpty(t, reply.SessionID)

	rec = f.json(t, http.MethodPost, "/v1/chat", "pat", `{"session_id": "`+reply.SessionID+`", "message": "What is machine learning?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &reply)
	assert.Equal(t, appchat.KindRedirect, reply.Kind)

	rec = f.do(t, http.MethodGet, "/v1/chat/sessions/"+reply.SessionID+"/messages", "pat", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		Messages []chat.Message `json:"messages"`
	}
	decodeBody(t, rec, &hist)
	assert.Len(t, hist.Messages, 4)

	// sesi orang lain tidak kelihatan
	rec = f.do(t, http.MethodGet, "/v1/chat/sessions/"+reply.SessionID+"/messages", "doc", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusBadRequest, f.json(t, http.MethodPost, "/v1/chat", "pat", `{"message": "   "}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.json(t, http.MethodPost, "/v1/chat", "pat", `{`).Code)
}

func TestScanChat_Access(t *testing.T) {
	f := newFixture(t, highReply)
	f.seed("s9", "p2", time.Hour, nil)

	rec := f.json(t, http.MethodPost, "/v1/chat/scan", "pat", `{"scan_id": "s9", "message": "What does my scan show?"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.json(t, http.MethodPost, "/v1/chat/scan", "doc", `{"scan_id": "s9", "message": "What does this scan show?"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTopicClassify(t *testing.T) {
	f := newFixture(t, highReply)

	rec := f.json(t, http.MethodPost, "/v1/topic/classify", "pat", `{"message": "What is machine learning?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Verdict  topic.Verdict `json:"verdict"`
		Redirect string        `json:"redirect_message"`
	}
	decodeBody(t, rec, &out)
	assert.False(t, out.Verdict.InDomain)
	assert.Equal(t, topic.DefaultRedirectMessage, out.Redirect)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, highReply)
	f.do(t, http.MethodGet, "/health", "", nil, "")

	rec := f.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "radiology_http_requests_total")
}

func TestClinical_AIEndpoints(t *testing.T) {
	f := newFixture(t, highReply)

	rec := f.json(t, http.MethodPost, "/v1/ai/classify-disease", "pat", `{"symptoms":"chest pain"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cls clinical.Classification
	decodeBody(t, rec, &cls)
	assert.Equal(t, clinical.IncompleteDiagnosis, cls.PrimaryDiagnosis)
	assert.Contains(t, cls.Explanation, "Chest pain has many causes")

	assert.Equal(t, http.StatusBadRequest, f.json(t, http.MethodPost, "/v1/ai/classify-disease", "pat", `{"symptoms":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.json(t, http.MethodPost, "/v1/ai/suggest-medicines", "pat", `{"symptoms":"cough"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.json(t, http.MethodPost, "/v1/ai/suggest-medicines", "pat", `{"disease_classification":"Flu","patient_age":-1}`).Code)

	rec = f.json(t, http.MethodPost, "/v1/ai/assess-risk", "pat", `{"findings":["nodule"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ra clinical.RiskAssessment
	decodeBody(t, rec, &ra)
	assert.Equal(t, scans.RiskMedium, ra.OverallRisk)
	assert.Equal(t, clinical.PriorityRoutine, ra.PriorityLevel)
}

func TestClinical_HealthSummary(t *testing.T) {
	f := newFixture(t, highReply)
	f.seed("s1", "p1", time.Hour, nil)

	rec := f.do(t, http.MethodGet, "/v1/patients/p1/health-summary", "pat", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum clinical.HealthSummary
	decodeBody(t, rec, &sum)
	assert.Equal(t, 1, sum.TotalScans)
	assert.NotEmpty(t, sum.Summary)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/v1/patients/p2/health-summary", "pat", nil, "").Code)
}

func TestClinical_ReportFlow(t *testing.T) {
	f := newFixture(t, highReply)
	f.seed("s1", "p1", time.Hour, &scans.Finding{Risk: scans.RiskHigh, Classification: "Pneumonia"})

	assert.Equal(t, http.StatusForbidden, f.json(t, http.MethodPost, "/v1/patients/p1/reports", "pat", `{"scan_id":"s1"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.json(t, http.MethodPost, "/v1/patients/p1/reports", "doc", `{"scan_id":"nope"}`).Code)

	rec := f.json(t, http.MethodPost, "/v1/patients/p1/reports", "doc", `{"scan_id":"s1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rep reports.Report
	decodeBody(t, rec, &rep)
	assert.Equal(t, reports.StatusPending, rep.Status)
	assert.Equal(t, "d1", rep.DoctorID)

	rec = f.do(t, http.MethodGet, "/v1/reports/pending", "adm", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []map[string]any
	decodeBody(t, rec, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, float64(0), pending[0]["days_pending"])
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/v1/reports/pending", "pat", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/reports/pending?skip=-1", "doc", nil, "").Code)

	path := "/v1/reports/" + string(rep.ID) + "/validate"
	assert.Equal(t, http.StatusBadRequest, f.json(t, http.MethodPut, path, "doc", `{"status":"pending"}`).Code)
	assert.Equal(t, http.StatusForbidden, f.json(t, http.MethodPut, path, "adm", `{"status":"validated"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.json(t, http.MethodPut, "/v1/reports/missing/validate", "doc", `{"status":"validated"}`).Code)

	rec = f.json(t, http.MethodPut, path, "doc", `{"status":"validated","diagnosis":"Pneumonia"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &rep)
	assert.Equal(t, reports.StatusValidated, rep.Status)
	assert.NotNil(t, rep.ValidatedAt)

	rec = f.do(t, http.MethodGet, "/v1/patients/p1/reports", "pat", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []reports.Report
	decodeBody(t, rec, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "Pneumonia", mine[0].Diagnosis)
}

func TestClinical_PatientMedicines(t *testing.T) {
	f := newFixture(t, highReply)

	assert.Equal(t, http.StatusNotFound, f.json(t, http.MethodPost, "/v1/patients/p1/medicine-suggestions", "doc", `{}`).Code)

	f.seed("s1", "p1", time.Hour, nil)
	assert.Equal(t, http.StatusForbidden, f.json(t, http.MethodPost, "/v1/patients/p1/medicine-suggestions", "pat", `{}`).Code)

	rec := f.json(t, http.MethodPost, "/v1/patients/p1/medicine-suggestions", "doc", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out clinical.MedicineSuggestion
	decodeBody(t, rec, &out)
	assert.Equal(t, "s1", out.ScanContext["scan_id"])
	assert.Equal(t, "Pneumonia", out.ScanContext["classification"])
	assert.Equal(t, true, out.ScanContext["analyzed"])
}
