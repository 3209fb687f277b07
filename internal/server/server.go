// Package server exposes the analysis engine over HTTP: a streaming analyze
// endpoint plus read access to stored runs.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/mkessler/brandscope/internal/config"
	"github.com/mkessler/brandscope/internal/database"
	"github.com/mkessler/brandscope/internal/engine"
	"github.com/mkessler/brandscope/internal/report"
)

var md = goldmark.New()

const reportPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>`

// Server is the HTTP server for running and serving analyses.
type Server struct {
	cfg  *config.Config
	db   *database.DB
	page *template.Template
	mux  *http.ServeMux
}

// New creates a new Server.
func New(cfg *config.Config, db *database.DB) *Server {
	s := &Server{
		cfg:  cfg,
		db:   db,
		page: template.Must(template.New("report").Parse(reportPage)),
		mux:  http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/runs", s.handleListRuns)
	s.mux.HandleFunc("/api/runs/", s.handleGetRun)
	s.mux.HandleFunc("/runs/", s.handleReportPage)
}

// handleAnalyze runs a full analysis and streams progress as server-sent
// events. The client disconnecting cancels the run; the partial report is
// still stored.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sendEvent := func(payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("marshaling event: %v", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	eng := engine.New(s.cfg, s.responseCache())
	rep, err := eng.Run(r.Context(), func(ev engine.Event) {
		sendEvent(ev)
	})
	if err != nil {
		sendEvent(map[string]string{"type": "error", "error": err.Error()})
		return
	}

	if id, err := s.storeRun(rep); err != nil {
		log.Printf("storing run: %v", err)
	} else {
		sendEvent(map[string]any{"type": "saved", "run_id": id})
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.ListRuns(50)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	type runSummary struct {
		ID              int64   `json:"id"`
		Brand           string  `json:"brand"`
		StartedAt       string  `json:"started_at"`
		Partial         bool    `json:"partial"`
		VisibilityScore float64 `json:"visibility_score"`
		TotalQueries    int     `json:"total_queries"`
		TotalResponses  int     `json:"total_responses"`
		TotalMentions   int     `json:"total_mentions"`
	}
	summaries := make([]runSummary, len(runs))
	for i, run := range runs {
		summaries[i] = runSummary{
			ID:              run.ID,
			Brand:           run.Brand,
			StartedAt:       run.StartedAt,
			Partial:         run.Partial,
			VisibilityScore: run.VisibilityScore,
			TotalQueries:    run.TotalQueries,
			TotalResponses:  run.TotalResponses,
			TotalMentions:   run.TotalMentions,
		}
	}
	writeJSON(w, summaries)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, strings.TrimPrefix(r.URL.Path, "/api/runs/"))
	if run == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if run.ReportJSON != "" {
		fmt.Fprint(w, run.ReportJSON)
		return
	}
	writeJSON(w, run)
}

// handleReportPage renders a stored run's markdown report as HTML.
func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	idPart := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/runs/"), "/report")
	run := s.lookupRun(w, idPart)
	if run == nil {
		return
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(run.ReportMarkdown), &buf); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.page.Execute(w, map[string]any{
		"Title": fmt.Sprintf("Visibility Report: %s", run.Brand),
		"Body":  template.HTML(buf.String()), //nolint: gosec
	})
	if err != nil {
		log.Printf("rendering report page: %v", err)
	}
}

func (s *Server) lookupRun(w http.ResponseWriter, idPart string) *database.Run {
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return nil
	}
	run, err := s.db.GetRun(id)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return nil
	}
	return run
}

func (s *Server) responseCache() *database.ResponseCache {
	ttl := time.Duration(s.cfg.Analysis.CacheTTLHours) * time.Hour
	return database.NewResponseCache(s.db, ttl)
}

func (s *Server) storeRun(rep *report.FinalReport) (int64, error) {
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return 0, fmt.Errorf("marshaling report: %w", err)
	}
	return s.db.InsertRun(rep.Brand, rep.Partial, rep.VisibilityScore,
		rep.TotalQueries, rep.TotalResponses, rep.TotalMentions,
		string(reportJSON), rep.Markdown())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writing JSON response: %v", err)
	}
}

// Serve starts the HTTP server on the configured port.
func Serve(cfg *config.Config, db *database.DB) error {
	srv := New(cfg, db)
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
