// internal/httpserver/server.go
//
// HTTP wiring for the Reuse game server.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery).
//   - Public endpoints: "/", "/health", "/debug/words".
//   - The websocket endpoint "/ws" handing connections to the hub.
//   - Static file serving for the browser client, when PUBLIC_DIR is set.
//
// Notes:
//   - No request timeout middleware: websocket connections are long-lived.
//   - Game state never crosses this package; everything stateful happens
//     behind the hub.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/reusegame/go-server/internal/lexicon"
	"github.com/reusegame/go-server/internal/ws"
)

// Server bundles the router with its collaborators.
type Server struct {
	r   *chi.Mux
	lex *lexicon.Lexicon
}

// New constructs a Server, installs middleware, and registers routes.
// publicDir may be empty to skip static serving.
func New(hub *ws.Hub, lex *lexicon.Lexicon, publicDir string) *Server {
	s := &Server{r: chi.NewRouter(), lex: lex}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Debug: word list counts
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		valid, rejected := s.lex.Stats()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]int{"valid": valid, "rejected": rejected})
	})

	s.r.Get("/ws", hub.ServeWS)

	if publicDir != "" {
		s.r.Handle("/*", http.FileServer(http.Dir(publicDir)))
	} else {
		s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"reuse-go","endpoints":["/health","/debug/words","GET /ws"]}`))
		})
	}

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }
