package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/soaringjerry/BariCheck/internal/questionnaire"
	"github.com/soaringjerry/BariCheck/internal/scoring"
	"github.com/soaringjerry/BariCheck/internal/services"
)

const maxBodyBytes = 1 << 20

// Options carries the optional collaborators of a Router.
type Options struct {
	Receipts   *services.ReceiptSigner
	Pseudonyms *services.Pseudonymizer
	Observer   services.SubmissionObserver
}

type Router struct {
	doc         *questionnaire.Document
	engine      *scoring.Engine
	submissions *services.SubmissionService
	exports     *services.ExportService
	receipts    *services.ReceiptSigner
}

// NewRouter wires the services for one loaded questionnaire. A nil store
// falls back to the in-memory store.
func NewRouter(doc *questionnaire.Document, store Store, opts Options) *Router {
	if doc == nil {
		doc = &questionnaire.Document{}
	}
	if store == nil {
		store = newMemoryStore()
	}
	engine := scoring.NewEngine(doc)
	return &Router{
		doc:    doc,
		engine: engine,
		submissions: services.NewSubmissionService(store, engine,
			services.WithReceipts(opts.Receipts),
			services.WithPseudonyms(opts.Pseudonyms),
			services.WithObserver(opts.Observer),
		),
		exports:  services.NewExportService(store, engine.Questions()),
		receipts: opts.Receipts,
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/questionnaire", rt.handleQuestionnaire)   // GET
	mux.HandleFunc("/api/submissions", rt.handleSubmissions)       // POST
	mux.HandleFunc("/api/submissions/", rt.handleSubmissionScoped) // GET /api/submissions/{id}[/export]
	mux.HandleFunc("/api/export", rt.handleExport)                 // GET
	mux.HandleFunc("/api/receipts/verify", rt.handleVerifyReceipt) // POST
}

// GET /api/questionnaire
func (rt *Router) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	orange, red := rt.doc.Thresholds()
	writeJSON(w, http.StatusOK, map[string]any{
		"title":        rt.doc.Metadata.Title,
		"version":      rt.doc.Metadata.Version,
		"color_points": rt.doc.ColorPoints(),
		"critical_ids": rt.doc.CriticalIDs(),
		"thresholds":   map[string]float64{"orange": orange, "red": red},
		"max_points":   rt.engine.MaxPoints(),
		"questions":    rt.engine.Questions(),
	})
}

type submitPayload struct {
	Patient services.Patient `json:"patient"`
	Answers map[string]any   `json:"answers"`
}

// POST /api/submissions
// { patient: {last_name, first_name, visit_date}, answers: {question_id: value} }
func (rt *Router) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req submitPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.submissions.Submit(services.SubmitRequest{Patient: req.Patient, Answers: req.Answers})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sub := res.Submission
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          sub.ID,
		"created_at":  sub.CreatedAt.Format(time.RFC3339),
		"patient_key": sub.PatientKey,
		"report":      services.PortableReport(sub.Report),
		"receipt":     res.Receipt,
	})
}

// GET /api/submissions/{id} and GET /api/submissions/{id}/export
func (rt *Router) handleSubmissionScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/submissions/"), "/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	switch {
	case len(parts) == 1:
		sub, err := rt.submissions.Get(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, submissionView(sub))
	case len(parts) == 2 && parts[1] == "export":
		res, err := rt.exports.ExportJSON(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeAttachment(w, res)
	default:
		http.NotFound(w, r)
	}
}

// GET /api/export?format=long|wide|score
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, err := rt.exports.ExportCSV(services.ExportParams{Format: r.URL.Query().Get("format")})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeAttachment(w, res)
}

// POST /api/receipts/verify { receipt }
func (rt *Router) handleVerifyReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if rt.receipts == nil {
		http.Error(w, "receipts disabled", http.StatusNotFound)
		return
	}
	var req struct {
		Receipt string `json:"receipt"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	claims, err := rt.receipts.Verify(strings.TrimSpace(req.Receipt))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := map[string]any{
		"valid":         true,
		"submission_id": claims.SubmissionID,
		"global_color":  claims.GlobalColor,
		"percentage":    claims.Percentage,
	}
	if claims.IssuedAt != nil {
		out["issued_at"] = claims.IssuedAt.Time.UTC().Format(time.RFC3339)
	}
	if claims.ExpiresAt != nil {
		out["expires_at"] = claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeAttachment(w http.ResponseWriter, res *services.ExportResult) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+res.Filename)
	_, _ = w.Write(res.Data)
}

func writeServiceError(w http.ResponseWriter, err error) {
	se, ok := services.AsServiceError(err)
	if !ok {
		log.Printf("api: internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	status := http.StatusBadRequest
	switch se.Code {
	case services.ErrorNotFound:
		status = http.StatusNotFound
	case services.ErrorUnauthorized:
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]string{"error": string(se.Code), "message": se.Message})
}

// submissionView renders dates inside answers and rows as YYYY-MM-DD.
func submissionView(sub *services.Submission) services.Submission {
	out := *sub
	out.Answers = services.PortableAnswers(sub.Answers)
	out.Report = services.PortableReport(sub.Report)
	return out
}
