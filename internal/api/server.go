package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
	"github.com/pbaille/expertkb/internal/kb"
	"github.com/pbaille/expertkb/internal/logger"
	"github.com/pbaille/expertkb/internal/questionnaire"
	"github.com/pbaille/expertkb/internal/store"
	"github.com/pbaille/expertkb/internal/workspace"
	"go.uber.org/zap"
)

// DefaultMaxSourceBytes bounds PUT /kb bodies when Options.MaxSourceBytes is unset
const DefaultMaxSourceBytes = 5 * 1024 * 1024

// Server handles HTTP requests for the knowledge base API
type Server struct {
	ws             *workspace.Workspace
	store          *store.Store
	addr           string
	allowedOrigins []string
	maxSourceBytes int64
	logger         *zap.SugaredLogger
}

// Options configures a Server
type Options struct {
	Addr           string
	AllowedOrigins []string
	Store          *store.Store // optional; history endpoints return 503 without it
	MaxSourceBytes int64
	Logger         *zap.SugaredLogger
}

// New creates a new API server
func New(ws *workspace.Workspace, opts Options) *Server {
	s := &Server{
		ws:             ws,
		store:          opts.Store,
		addr:           opts.Addr,
		allowedOrigins: opts.AllowedOrigins,
		maxSourceBytes: opts.MaxSourceBytes,
		logger:         opts.Logger,
	}
	if s.maxSourceBytes <= 0 {
		s.maxSourceBytes = DefaultMaxSourceBytes
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Knowledge base
	mux.HandleFunc("GET /kb", s.getKB)
	mux.HandleFunc("PUT /kb", s.putKB)
	mux.HandleFunc("POST /kb/reload", s.reloadKB)

	// Questionnaire
	mux.HandleFunc("GET /questions", s.listQuestions)
	mux.HandleFunc("POST /resolve", s.resolve)

	// History
	mux.HandleFunc("GET /history", s.listHistory)
	mux.HandleFunc("GET /sources", s.listSources)
	mux.HandleFunc("GET /sources/{id}", s.getSource)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return s.withCORS(mux)
}

// Run starts the HTTP server and shuts it down when ctx is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Starting server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Infow("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for frontend development
func (s *Server) withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) string {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok"}
	if snap := s.ws.Current(); snap != nil {
		status["location"] = snap.Location
		status["entries"] = snap.DB.Len()
		status["loaded_at"] = snap.LoadedAt
	}
	writeJSON(w, http.StatusOK, status)
}

// CategoryValues is one catalog row, kept as a list so order survives JSON
type CategoryValues struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// KBResponse is the explorer view of the current knowledge base
type KBResponse struct {
	Location   string            `json:"location,omitempty"`
	Entries    []domain.Entry    `json:"entries"`
	Categories []CategoryValues  `json:"categories"`
	Questions  map[string]string `json:"questions"`
	Tips       map[string]string `json:"tips"`
	Changes    map[string]string `json:"changes"`
}

func (s *Server) getKB(w http.ResponseWriter, r *http.Request) {
	snap := s.ws.Current()
	if snap == nil {
		writeError(w, http.StatusNotFound, errors.ErrNoKnowledgeBase.Error())
		return
	}
	db := snap.DB

	resp := KBResponse{
		Location:   snap.Location,
		Entries:    db.Entries(),
		Categories: make([]CategoryValues, 0),
		Questions:  db.Questions(),
		Tips:       db.Tips(),
		Changes:    db.Changes(),
	}
	for _, name := range db.CategoryNames() {
		resp.Categories = append(resp.Categories, CategoryValues{Name: name, Values: db.Values(name)})
	}

	writeJSON(w, http.StatusOK, resp)
}

// SyntaxErrorResponse is returned when an uploaded source does not parse
type SyntaxErrorResponse struct {
	Error  string `json:"error"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (s *Server) putKB(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxSourceBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if int64(len(body)) > s.maxSourceBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "source too large")
		return
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		location = "upload"
	}

	snap, err := s.ws.LoadText(r.Context(), location, string(body))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loadSummary(snap))
}

func (s *Server) reloadKB(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ws.Reload(r.Context())
	if err != nil {
		s.writeLoadError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loadSummary(snap))
}

func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	var serr *kb.SyntaxError
	switch {
	case errors.As(err, &serr):
		writeJSON(w, http.StatusBadRequest, SyntaxErrorResponse{
			Error:  serr.Message,
			Line:   serr.Line,
			Column: serr.Column,
		})
	case errors.Is(err, errors.ErrNoKnowledgeBase):
		writeError(w, http.StatusConflict, err.Error())
	case errors.IsInvalidRequest(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Errorw("Load failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func loadSummary(snap *workspace.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"location":   snap.Location,
		"source_id":  snap.SourceID,
		"reloadable": snap.Reloadable,
		"entries":    snap.DB.Len(),
		"categories": len(snap.DB.CategoryNames()),
		"questions":  len(snap.DB.QuestionCategories()),
	}
}

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	form := questionnaire.New(s.ws.DB())
	if err := form.SelectTarget(r.URL.Query().Get("target")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	questions := form.Questions()
	if questions == nil {
		questions = []questionnaire.Question{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"target":    form.Target(),
		"targets":   form.Targets(),
		"questions": questions,
	})
}

// ResolveRequest is the request body for resolving answers
type ResolveRequest struct {
	Target  string        `json:"target,omitempty"`
	Answers []domain.Pair `json:"answers"`
}

// NotFoundResponse echoes the query that found nothing
type NotFoundResponse struct {
	Error  string        `json:"error"`
	Query  []domain.Pair `json:"query"`
	Target string        `json:"target,omitempty"`
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conclusion, err := s.ws.Resolve(r.Context(), req.Target, req.Answers)
	if err != nil {
		var nf *kb.NotFoundError
		switch {
		case errors.As(err, &nf):
			query := nf.Query
			if query == nil {
				query = []domain.Pair{}
			}
			writeJSON(w, http.StatusNotFound, NotFoundResponse{
				Error:  nf.Error(),
				Query:  query,
				Target: nf.Target,
			})
		case errors.Is(err, errors.ErrNoKnowledgeBase):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Errorw("Resolve failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"conclusion": conclusion})
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not recorded")
		return
	}

	limit := intParam(r, "limit", 20)
	offset := intParam(r, "offset", 0)

	records, err := s.store.ListQueries(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []domain.QueryRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"queries": records,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not recorded")
		return
	}

	limit := intParam(r, "limit", 20)
	sources, err := s.store.ListSources(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []domain.Source{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources": sources,
		"limit":   limit,
	})
}

func (s *Server) getSource(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not recorded")
		return
	}

	src, err := s.store.GetSource(r.PathValue("id"))
	if err != nil {
		if errors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, src)
}

func intParam(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
