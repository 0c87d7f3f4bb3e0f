// Package fakeserver emulates the Cooksync service closely enough to
// drive the client end to end: device authorization, token lookup and
// delta exports.
package fakeserver

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/cooksync/cooksync/internal/domain"
)

// DefaultClientIDHeader is the header carrying the device ID on exports.
const DefaultClientIDHeader = "Obsidian-Client"

// Server is an in-memory Cooksync service.
type Server struct {
	logger         *slog.Logger
	clientIDHeader string

	mu      sync.Mutex
	recipes map[int64]domain.ExportRecord
	tokens  map[string]string // device ID -> token
	valid   map[string]bool   // issued tokens
	forced  int
	exports int
	lookups int
}

// Option configures a Server.
type Option func(*Server)

// WithRecipes seeds the catalog.
func WithRecipes(recipes ...domain.ExportRecord) Option {
	return func(s *Server) {
		for _, r := range recipes {
			s.recipes[r.ID] = r
		}
	}
}

// WithClientIDHeader changes the device header the export endpoint expects.
func WithClientIDHeader(name string) Option {
	return func(s *Server) { s.clientIDHeader = name }
}

// New creates a Server.
func New(logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		logger:         logger,
		clientIDHeader: DefaultClientIDHeader,
		recipes:        make(map[int64]domain.ExportRecord),
		tokens:         make(map[string]string),
		valid:          make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	// Browser pages
	r.Get("/export", s.authorizePage)
	r.Get("/export/{clientTarget}", s.customizePage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/clients/token", s.lookupToken)
		r.With(s.bearerAuth).Post("/recipes/export/{clientTarget}", s.export)
	})

	// Development controls
	r.Route("/dev", func(r chi.Router) {
		r.Post("/recipes", s.addRecipe)
		r.Get("/recipes", s.listRecipes)
		r.Put("/status/{code}", s.forceStatus)
		r.Delete("/status", s.clearStatus)
	})

	return r
}

// AddRecipe adds or replaces a catalog entry.
func (s *Server) AddRecipe(rec domain.ExportRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[rec.ID] = rec
}

// Authorize links a fresh token to deviceID, as the browser page does.
func (s *Server) Authorize(deviceID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokens[deviceID]; ok {
		return tok
	}
	tok := uuid.NewString()
	s.tokens[deviceID] = tok
	s.valid[tok] = true
	return tok
}

// ForceStatus makes every export answer with code until cleared with 0.
func (s *Server) ForceStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = code
}

// ExportCalls returns how many export requests reached the handler.
func (s *Server) ExportCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}

// TokenLookups returns how many token lookups were served.
func (s *Server) TokenLookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

var authorizeTmpl = template.Must(template.New("authorize").Parse(`<!doctype html>
<html><head><title>Cooksync</title></head>
<body>
<h1>Cooksync connected</h1>
<p>Device <code>{{.DeviceID}}</code> is now linked for {{.Service}}. You can close this tab.</p>
</body></html>
`))

// authorizePage stands in for the login flow: visiting it links the
// device immediately.
func (s *Server) authorizePage(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("uuid")
	if deviceID == "" {
		http.Error(w, "missing uuid", http.StatusBadRequest)
		return
	}
	s.Authorize(deviceID)
	s.logger.Info("device authorized", "device_id", deviceID, "service", r.URL.Query().Get("service"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	authorizeTmpl.Execute(w, map[string]string{
		"DeviceID": deviceID,
		"Service":  r.URL.Query().Get("service"),
	})
}

func (s *Server) customizePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html><h1>Customize %s import</h1>\n", template.HTMLEscapeString(chi.URLParam(r, "clientTarget")))
}

func (s *Server) lookupToken(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("uuid")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing uuid")
		return
	}

	s.mu.Lock()
	s.lookups++
	tok := s.tokens[deviceID]
	s.mu.Unlock()

	if tok == "" {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

type exportRequest struct {
	ExportTarget string  `json:"exportTarget"`
	RecipeIDs    []int64 `json:"recipeIds"`
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Header.Get(s.clientIDHeader)
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing "+s.clientIDHeader+" header")
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ExportTarget != chi.URLParam(r, "clientTarget") {
		writeError(w, http.StatusBadRequest, "export target mismatch")
		return
	}

	s.mu.Lock()
	s.exports++
	forced := s.forced
	var pending []domain.ExportRecord
	if forced == 0 {
		pending = s.pendingLocked(req.RecipeIDs)
	}
	s.mu.Unlock()

	if forced != 0 {
		w.WriteHeader(forced)
		return
	}

	s.logger.Info("export", "device_id", deviceID, "known", len(req.RecipeIDs), "pending", len(pending))
	if len(pending) == 0 {
		// nothing new: empty body
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusCreated, pending)
}

// pendingLocked returns catalog entries not in known, ordered by ID.
func (s *Server) pendingLocked(known []int64) []domain.ExportRecord {
	seen := make(map[int64]bool, len(known))
	for _, id := range known {
		seen[id] = true
	}
	var out []domain.ExportRecord
	for id, rec := range s.recipes {
		if !seen[id] {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) addRecipe(w http.ResponseWriter, r *http.Request) {
	var rec domain.ExportRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipe")
		return
	}
	if rec.ID == 0 {
		s.mu.Lock()
		for id := range s.recipes {
			if id > rec.ID {
				rec.ID = id
			}
		}
		rec.ID++
		s.mu.Unlock()
	}
	s.AddRecipe(rec)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	all := s.pendingLocked(nil)
	s.mu.Unlock()
	if all == nil {
		all = []domain.ExportRecord{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) forceStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 100 || code > 599 {
		writeError(w, http.StatusBadRequest, "invalid status code")
		return
	}
	s.ForceStatus(code)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearStatus(w http.ResponseWriter, r *http.Request) {
	s.ForceStatus(0)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
