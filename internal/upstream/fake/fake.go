// Package fake is an in-memory stand-in for the remote POS API. It serves
// seeded collections, supports bank transaction writes and can be told to
// fail individual endpoints.
package fake

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"passbook/backend/internal/record"
)

type Server struct {
	mu          sync.RWMutex
	collections map[string][]record.Record
	failures    map[string]int
	envelope    map[string]bool
	bankPath    string
	authorize   func(token string) bool
	requests    map[string]int
}

// New returns an empty server whose bank transaction collection lives at
// bankPath. Any non-empty bearer token is accepted until Authorize is set.
func New(bankPath string) *Server {
	return &Server{
		collections: make(map[string][]record.Record),
		failures:    make(map[string]int),
		envelope:    make(map[string]bool),
		requests:    make(map[string]int),
		bankPath:    bankPath,
		authorize:   func(token string) bool { return token != "" },
	}
}

func (s *Server) Authorize(fn func(token string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorize = fn
}

// Seed replaces the collection at path. With envelope set the collection is
// served as {"records": [...]}.
func (s *Server) Seed(path string, recs []record.Record, envelope bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[path] = append([]record.Record(nil), recs...)
	s.envelope[path] = envelope
}

// Fail makes every request to path answer with status. Zero clears it.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Requests reports how many GET requests path has served.
func (s *Server) Requests(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[path]
}

func (s *Server) Collection(path string) []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]record.Record(nil), s.collections[path]...)
}

func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serve)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	s.mu.RLock()
	allowed := s.authorize(token)
	s.mu.RUnlock()
	if !allowed {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
		return
	}

	path, id := r.URL.Path, ""
	if strings.HasPrefix(path, s.bankPath+"/") {
		path, id = s.bankPath, strings.TrimPrefix(r.URL.Path, s.bankPath+"/")
	}

	s.mu.RLock()
	status, failing := s.failures[path]
	s.mu.RUnlock()
	if failing {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}

	switch {
	case r.Method == http.MethodGet && id == "":
		s.list(w, path)
	case path == s.bankPath && r.Method == http.MethodPost && id == "":
		s.createBank(w, r)
	case path == s.bankPath && (r.Method == http.MethodPut || r.Method == http.MethodPatch) && id != "":
		s.updateBank(w, r, id)
	case path == s.bankPath && r.Method == http.MethodDelete && id != "":
		s.deleteBank(w, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (s *Server) list(w http.ResponseWriter, path string) {
	s.mu.Lock()
	s.requests[path]++
	recs, ok := s.collections[path]
	envelope := s.envelope[path]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	if envelope {
		writeJSON(w, http.StatusOK, map[string]any{"records": recs})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) createBank(w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	rec["_id"] = uuid.NewString()

	s.mu.Lock()
	s.collections[s.bankPath] = append(s.collections[s.bankPath], rec)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) updateBank(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	rec["_id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.collections[s.bankPath] {
		if existing.ID() == id {
			s.collections[s.bankPath][i] = rec
			writeJSON(w, http.StatusOK, map[string]any{"record": rec})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
}

func (s *Server) deleteBank(w http.ResponseWriter, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.collections[s.bankPath]
	for i, existing := range recs {
		if existing.ID() == id {
			s.collections[s.bankPath] = append(recs[:i:i], recs[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (record.Record, bool) {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.UseNumber()
	var rec record.Record
	if err := decoder.Decode(&rec); err != nil || rec == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
