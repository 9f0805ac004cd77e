package identity

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Server is an in-memory identity server speaking the same protocol as the
// production backend. It backs the mock-server command and tests.
type Server struct {
	mu    sync.Mutex
	users map[string]*user

	// RequireRegistration makes score posts for unknown cards return 403.
	RequireRegistration bool
}

type user struct {
	empathy        int
	creativity     int
	problemSolving int
	games          map[int]int
}

// NewServer returns an empty server that rejects scores for unregistered cards.
func NewServer() *Server {
	return &Server{
		users:               map[string]*user{},
		RequireRegistration: true,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/", s.getUser)
		r.Post("/", s.postUser)
	})
	return r
}

// Provision registers id without an HTTP round trip.
func (s *Server) Provision(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		s.users[id] = &user{games: map[int]int{}}
	}
}

// Submissions returns how many scores id has received for gameID.
func (s *Server) Submissions(id string, gameID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0
	}
	return u.games[gameID]
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	u, ok := s.users[id]
	var resp UserResponse
	if ok {
		resp.NfcID = id
		resp.Attributes = &Attributes{Empathy: u.empathy, Creativity: u.creativity, ProblemSolving: u.problemSolving}
	}
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) postUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "{}" {
		s.mu.Lock()
		_, existed := s.users[id]
		if !existed {
			s.users[id] = &user{games: map[int]int{}}
		}
		s.mu.Unlock()
		if existed {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusCreated)
		return
	}

	var payload ScorePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid score payload", http.StatusBadRequest)
		return
	}
	if payload.NfcID != "" && payload.NfcID != id {
		http.Error(w, "nfcId does not match path", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		if s.RequireRegistration {
			http.Error(w, "card not registered", http.StatusForbidden)
			return
		}
		u = &user{games: map[int]int{}}
		s.users[id] = u
	}
	u.empathy += payload.Skill1
	u.creativity += payload.Skill2
	u.problemSolving += payload.Skill3
	u.games[payload.GameID]++
	w.WriteHeader(http.StatusNoContent)
}
