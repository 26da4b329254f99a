package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"dollartracker/internal/status"
)

type rootResponse struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Docs    string   `json:"docs"`
	Health  string   `json:"health"`
	Sources []string `json:"sources"`
}

type sourcesResponse struct {
	Sources []status.Entry `json:"sources"`
}

type docsResponse struct {
	Routes []string `json:"routes"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	entries := s.backend.Sources()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	writeJSON(w, http.StatusOK, rootResponse{
		Name:    Name,
		Version: s.backend.Version(),
		Docs:    "/docs",
		Health:  "/health",
		Sources: names,
	})
}

// handleDocs lists every registered GET route.
func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	seen := map[string]bool{}
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if tpl, err := route.GetPathTemplate(); err == nil && route.GetHandler() != nil {
			seen[tpl] = true
		}
		return nil
	})
	routes := make([]string, 0, len(seen))
	for tpl := range seen {
		routes = append(routes, tpl)
	}
	sort.Strings(routes)
	writeJSON(w, http.StatusOK, docsResponse{Routes: routes})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Health())
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Current(r.Context()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.backend.History(r.Context(), q.Get("interval"), q.Get("exchange")))
}

func (s *Server) handleVolatility(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Volatility(r.Context(), r.URL.Query().Get("period")))
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: s.backend.Sources()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	writeJSON(w, code, errorResponse{Detail: msg})
}
