package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/radiology-ai/internal/application/clinical"
	"github.com/bryanwahyu/radiology-ai/internal/domain/reports"
	domain "github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/middleware"
)

// POST /v1/ai/classify-disease  body {"symptoms": "...", "medical_history": "...", "imaging_findings": "..."}
func (r *Router) handleClassifyDisease(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Symptoms        string `json:"symptoms"`
		MedicalHistory  string `json:"medical_history"`
		ImagingFindings string `json:"imaging_findings"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	res, err := r.clinical.ClassifyDisease(req.Context(),
		middleware.SanitizeString(body.Symptoms),
		middleware.SanitizeString(body.MedicalHistory),
		middleware.SanitizeString(body.ImagingFindings),
	)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

type medicineBody struct {
	DiseaseClassification string `json:"disease_classification"`
	Symptoms              string `json:"symptoms"`
	PatientAge            int    `json:"patient_age"`
	ScanID                string `json:"scan_id"`
}

func (b medicineBody) validate() error {
	if b.PatientAge < 0 || b.PatientAge > 150 {
		return badRequest("patient_age out of range")
	}
	return nil
}

// POST /v1/ai/suggest-medicines
func (r *Router) handleSuggestMedicines(w http.ResponseWriter, req *http.Request) error {
	var body medicineBody
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := body.validate(); err != nil {
		return err
	}
	res, err := r.clinical.SuggestMedicines(req.Context(), clinical.MedicineCommand{
		Classification: middleware.SanitizeString(body.DiseaseClassification),
		Symptoms:       middleware.SanitizeString(body.Symptoms),
		Age:            body.PatientAge,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/patients/{patient}/medicine-suggestions  (doctor)
func (r *Router) handlePatientMedicines(w http.ResponseWriter, req *http.Request) error {
	var body medicineBody
	if req.ContentLength != 0 {
		if err := decode(req, &body); err != nil {
			return err
		}
	}
	if err := body.validate(); err != nil {
		return err
	}
	if body.ScanID != "" {
		if err := middleware.ValidateResourceID("scan", body.ScanID); err != nil {
			return badRequest("%v", err)
		}
	}
	res, err := r.clinical.SuggestMedicinesForPatient(req.Context(), clinical.PatientMedicineCommand{
		PatientID:      chi.URLParam(req, "patient"),
		ScanID:         domain.ScanID(body.ScanID),
		Classification: middleware.SanitizeString(body.DiseaseClassification),
		Symptoms:       middleware.SanitizeString(body.Symptoms),
		Age:            body.PatientAge,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/ai/assess-risk  body {"findings": ["..."], "medical_history": "..."}
func (r *Router) handleAssessRisk(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Findings       []string `json:"findings"`
		MedicalHistory string   `json:"medical_history"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	for i := range body.Findings {
		body.Findings[i] = middleware.SanitizeString(body.Findings[i])
	}
	res, err := r.clinical.AssessRisk(req.Context(), body.Findings, middleware.SanitizeString(body.MedicalHistory))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/patients/{patient}/health-summary
func (r *Router) handleHealthSummary(w http.ResponseWriter, req *http.Request) error {
	res, err := r.clinical.HealthSummary(req.Context(), chi.URLParam(req, "patient"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/patients/{patient}/reports?limit=
func (r *Router) handlePatientReports(w http.ResponseWriter, req *http.Request) error {
	limit := middleware.ValidatePageSize(middleware.ParseIntDefault(req.URL.Query().Get("limit"), 20))
	list, err := r.clinical.PatientReports(req.Context(), chi.URLParam(req, "patient"), limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// POST /v1/patients/{patient}/reports  body {"scan_id": "...", "report_type": "..."}  (doctor)
func (r *Router) handleGenerateReport(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ScanID     string `json:"scan_id"`
		ReportType string `json:"report_type"`
		PatientAge int    `json:"patient_age"`
		PatientSex string `json:"patient_sex"`
	}
	if req.ContentLength != 0 {
		if err := decode(req, &body); err != nil {
			return err
		}
	}
	if body.ScanID != "" {
		if err := middleware.ValidateResourceID("scan", body.ScanID); err != nil {
			return badRequest("%v", err)
		}
	}
	rep, err := r.clinical.GenerateReport(req.Context(), clinical.GenerateReportCommand{
		Doctor:     principal(req),
		PatientID:  chi.URLParam(req, "patient"),
		ScanID:     domain.ScanID(body.ScanID),
		ReportType: middleware.SanitizeString(body.ReportType),
		Age:        body.PatientAge,
		Sex:        middleware.SanitizeString(body.PatientSex),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, rep)
	return nil
}

// PUT /v1/reports/{report}/validate  (doctor)
func (r *Router) handleValidateReport(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "report")
	if err := middleware.ValidateResourceID("report", id); err != nil {
		return badRequest("%v", err)
	}
	var body struct {
		Status               string `json:"status"`
		DoctorNotes          string `json:"doctor_notes"`
		Diagnosis            string `json:"diagnosis"`
		RecommendedTreatment string `json:"recommended_treatment"`
		MedicineSuggestions  string `json:"medicine_suggestions"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	rep, err := r.clinical.ValidateReport(req.Context(), clinical.ValidateCommand{
		Doctor:               principal(req),
		ReportID:             reports.ReportID(id),
		Status:               body.Status,
		Notes:                middleware.SanitizeString(body.DoctorNotes),
		Diagnosis:            middleware.SanitizeString(body.Diagnosis),
		RecommendedTreatment: middleware.SanitizeString(body.RecommendedTreatment),
		MedicineSuggestions:  middleware.SanitizeString(body.MedicineSuggestions),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rep)
	return nil
}

// GET /v1/reports/pending?skip=&limit=  (doctor, admin)
func (r *Router) handlePendingReports(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	skip := middleware.ParseIntDefault(q.Get("skip"), 0)
	if skip < 0 {
		return badRequest("skip must not be negative")
	}
	limit := middleware.ParseIntDefault(q.Get("limit"), 50)
	list, err := r.clinical.PendingReports(req.Context(), skip, limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}
