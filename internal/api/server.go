package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/veritas/internal/engine"
	"github.com/knowledge-engine/veritas/internal/ingest"
	"github.com/knowledge-engine/veritas/internal/matcher"
	"github.com/knowledge-engine/veritas/internal/storage"
)

// formOverhead is the room left above MaxUploadBytes for multipart headers
// and JSON framing.
const formOverhead = 1 << 20

var (
	errTooLarge  = errors.New("api: request exceeds the upload size limit")
	errBadUpload = errors.New("api: invalid upload")
)

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router *http.ServeMux
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.WithField("component", "api")
	}
	s := &Server{
		Engine: eng,
		Logger: logger,
		Router: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.Router.HandleFunc("GET /api/v1/profiles", s.handleProfiles)
	s.Router.HandleFunc("GET /api/v1/library", s.handleListLibrary)
	s.Router.HandleFunc("POST /api/v1/library", s.handleAddDocument)
	s.Router.HandleFunc("DELETE /api/v1/library/{name}", s.handleRemoveDocument)
	s.Router.HandleFunc("POST /api/v1/compare", s.handleCompare)
	s.Router.HandleFunc("GET /api/v1/reports/{id}", s.handleReport)
	s.Router.HandleFunc("POST /api/v1/highlight", s.handleHighlight)
	s.Router.HandleFunc("POST /api/v1/web-scan", s.handleWebScan)
}

// Handler returns the router wrapped with request logging and the body size
// limit.
func (s *Server) Handler() http.Handler {
	return s.withLogging(s.withBodyLimit(s.Router))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	cfg := s.Engine.Config.Server
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Infof("Starting API Server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Logger.Info("Shutting down API Server")
		return srv.Shutdown(shutdownCtx)
	}
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	engine.Status
	Uptime string `json:"uptime"`
}

type ProfileView struct {
	Name    string         `json:"name"`
	Default bool           `json:"default"`
	Params  matcher.Params `json:"params"`
}

type DocumentView struct {
	Name    string    `json:"name"`
	Format  string    `json:"format"`
	Words   int       `json:"words"`
	AddedAt time.Time `json:"added_at"`
}

type HighlightRequest struct {
	Text    string          `json:"text"`
	Matches []matcher.Match `json:"matches"`
}

type HighlightResponse struct {
	Highlighted string                   `json:"highlighted"`
	Snippets    []matcher.SnippetOutcome `json:"snippets"`
}

// Handlers

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Engine.Status()
	if err != nil {
		s.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, StatusResponse{
		Status: status,
		Uptime: time.Since(status.Stats.StartTime).Round(time.Second).String(),
	})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	def, _, _ := s.Engine.Profile("")
	views := make([]ProfileView, 0, len(s.Engine.Profiles))
	for _, name := range s.Engine.Profiles.Names() {
		views = append(views, ProfileView{
			Name:    name,
			Default: name == def,
			Params:  s.Engine.Profiles[name],
		})
	}
	jsonResponse(w, http.StatusOK, views)
}

func (s *Server) handleListLibrary(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Engine.ListDocuments()
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]DocumentView, len(docs))
	for i, d := range docs {
		views[i] = documentView(d)
	}
	jsonResponse(w, http.StatusOK, views)
}

// handleAddDocument accepts either a JSON body {name, text} or a multipart
// upload with a "file" part.
func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var (
		doc *storage.Document
		err error
	)

	if isMultipart(r) {
		name, data, ferr := s.readUpload(r)
		if ferr != nil {
			s.writeError(w, ferr)
			return
		}
		doc, err = s.Engine.AddDocument(name, data)
	} else {
		var req struct {
			Name string `json:"name"`
			Text string `json:"text"`
		}
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "name is required"})
			return
		}
		if err := s.checkTextSize(req.Text); err != nil {
			s.writeError(w, err)
			return
		}
		doc, err = s.Engine.AddText(req.Name, req.Text)
	}

	if err != nil {
		s.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, documentView(doc))
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.RemoveDocument(r.PathValue("name")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCompare accepts a JSON CompareRequest or a multipart upload with a
// "file" part and an optional "profile" field.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req engine.CompareRequest

	if isMultipart(r) {
		name, data, err := s.readUpload(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		text, err := ingest.Extract(name, data)
		if err != nil {
			s.writeError(w, err)
			return
		}
		req = engine.CompareRequest{Name: name, Text: text, Profile: r.FormValue("profile")}
	} else {
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if err := s.checkTextSize(req.Text); err != nil {
			s.writeError(w, err)
			return
		}
	}

	rep, err := s.Engine.CompareWithLibrary(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rep)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Engine.LastReport(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rep)
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req HighlightRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.checkTextSize(req.Text); err != nil {
		s.writeError(w, err)
		return
	}

	highlighted, outcomes := matcher.HighlightDetailed(req.Text, req.Matches)
	if outcomes == nil {
		outcomes = []matcher.SnippetOutcome{}
	}
	jsonResponse(w, http.StatusOK, HighlightResponse{Highlighted: highlighted, Snippets: outcomes})
}

func (s *Server) handleWebScan(w http.ResponseWriter, r *http.Request) {
	var req engine.WebScanRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.checkTextSize(req.Text); err != nil {
		s.writeError(w, err)
		return
	}

	rep, err := s.Engine.ScanWeb(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rep)
}

func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	limit := s.Engine.Config.Server.MaxUploadBytes
	if err := r.ParseMultipartForm(limit); err != nil {
		return "", nil, fmt.Errorf("%w: multipart form: %w", errBadUpload, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: file is required: %w", errBadUpload, err)
	}
	defer file.Close()

	// one byte past the limit tells an oversized file from one that fits exactly
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return "", nil, fmt.Errorf("%w: read upload: %w", errBadUpload, err)
	}
	if int64(len(data)) > limit {
		return "", nil, fmt.Errorf("%w: %s is larger than %d bytes", errTooLarge, header.Filename, limit)
	}

	name := r.FormValue("name")
	if strings.TrimSpace(name) == "" {
		name = header.Filename
	}
	return name, data, nil
}

// writeError maps engine and storage errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errTooLarge), errors.As(err, &maxBytes):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadUpload):
		code = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, engine.ErrReportNotFound):
		code = http.StatusNotFound
	case errors.Is(err, engine.ErrEmptyText),
		errors.Is(err, engine.ErrUnknownProfile),
		errors.Is(err, engine.ErrUnknownMode),
		errors.Is(err, matcher.ErrInvalidParams),
		errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, ingest.ErrNoText),
		errors.Is(err, ingest.ErrUnsupportedFormat):
		code = http.StatusBadRequest
	case errors.Is(err, engine.ErrEmptyLibrary):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrWebScanUnavailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}

	if code == http.StatusInternalServerError {
		s.Logger.WithError(err).Error("Request failed")
	}
	jsonResponse(w, code, ErrorResponse{Error: err.Error()})
}

// decodeJSON reads the request body into v and writes the error response
// when it cannot.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		s.writeError(w, err)
	} else {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
	}
	return false
}

// checkTextSize applies the upload limit to text sent inline.
func (s *Server) checkTextSize(text string) error {
	if limit := s.Engine.Config.Server.MaxUploadBytes; limit > 0 && int64(len(text)) > limit {
		return fmt.Errorf("%w: text is larger than %d bytes", errTooLarge, limit)
	}
	return nil
}

func documentView(d *storage.Document) DocumentView {
	return DocumentView{Name: d.Name, Format: d.Format, Words: d.Words, AddedAt: d.AddedAt}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withBodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limit := s.Engine.Config.Server.MaxUploadBytes; limit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("Request handled")
	})
}
