// Package server shares base experiment configs with every worker of a
// sweep over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-http-utils/etag"
	"github.com/sardine-ai/go-experiment-kit/source"
	"github.com/sirupsen/logrus"
)

// MinRefreshInterval is the shortest refresh interval NewServer accepts.
const MinRefreshInterval = 5 * time.Second

// Paths that are served without the API key.
var publicPaths = map[string]bool{"/health": true, "/ready": true, "/status": true}

type Server struct {
	Repositories    []source.Repository
	RefreshInterval time.Duration
	AuthKey         string

	cancel     context.CancelFunc
	wg         sync.WaitGroup
	httpServer *http.Server

	mu     sync.RWMutex
	status map[string]*RepositoryStatus
}

// RepositoryStatus is the refresh state of one repository.
type RepositoryStatus struct {
	Name         string    `json:"name"`
	IsHealthy    bool      `json:"healthy"`
	RefreshCount int       `json:"refresh_count"`
	LastRefresh  time.Time `json:"last_refresh"`
	LastError    string    `json:"last_error,omitempty"`
}

// NewServer refreshes every repository once and then keeps refreshing them
// every refreshInterval until Stop is called.
func NewServer(ctx context.Context, repository []source.Repository, refreshInterval time.Duration) *Server {
	if refreshInterval < MinRefreshInterval {
		logrus.Warn("refresh interval too low, setting it to 5 seconds")
		refreshInterval = MinRefreshInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	server := &Server{
		Repositories:    repository,
		RefreshInterval: refreshInterval,
		cancel:          cancel,
		status:          make(map[string]*RepositoryStatus, len(repository)),
	}
	for _, repo := range server.Repositories {
		server.status[repo.GetName()] = &RepositoryStatus{Name: repo.GetName()}
		server.refreshOnce(ctx, repo)
	}
	for _, repo := range server.Repositories {
		server.wg.Add(1)
		go server.refresh(ctx, repo)
	}
	return server
}

func (s *Server) refresh(ctx context.Context, repository source.Repository) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.refreshOnce(ctx, repository)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) refreshOnce(ctx context.Context, repository source.Repository) {
	err := repository.Refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[repository.GetName()]
	if err != nil {
		logrus.WithError(err).WithField("source", repository.GetName()).Error("error refreshing repository")
		st.IsHealthy = false
		st.LastError = err.Error()
		return
	}
	st.IsHealthy = true
	st.RefreshCount++
	st.LastError = ""
	st.LastRefresh = time.Now()
}

// Stop ends the background refreshes and waits for them to return.
func (s *Server) Stop() {
	s.cancel()
	s.wg.Wait()
}

// IsHealthy reports whether the last refresh of every repository succeeded.
func (s *Server) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.status {
		if !st.IsHealthy {
			return false
		}
	}
	return true
}

// IsReady reports whether at least one repository has been loaded, so the
// server has something to serve.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.status {
		if st.RefreshCount > 0 {
			return true
		}
	}
	return false
}

// GetRepositoryStatus returns a copy of the refresh state of every repository.
func (s *Server) GetRepositoryStatus() map[string]RepositoryStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]RepositoryStatus, len(s.status))
	for name, st := range s.status {
		out[name] = *st
	}
	return out
}

// Start serves the config endpoints on addr until Shutdown is called or the
// listener fails.
func (s *Server) Start(addr string) error {
	logrus.WithField("addr", addr).Info("Starting server")

	var handler http.Handler = etag.Handler(s.CreateHandlers(), false)
	if s.AuthKey != "" {
		handler = Auth(handler, s.AuthKey)
	}

	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the refreshes and gracefully closes the HTTP listener.
func (s *Server) Shutdown() error {
	s.Stop()

	s.mu.RLock()
	httpServer := s.httpServer
	s.mu.RUnlock()
	if httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// CreateHandlers serves the raw YAML of each repository at /<name> next to
// the /health, /ready and /status endpoints.
func (s *Server) CreateHandlers() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	for _, repo := range s.Repositories {
		repo := repo
		mux.HandleFunc("/"+repo.GetName(), func(w http.ResponseWriter, r *http.Request) {
			if !allowed(w, r) {
				return
			}
			response := repo.GetRawData()
			if response == nil {
				http.Error(w, "config not loaded", http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/yaml")
			_, err := w.Write(response)
			if err != nil {
				logrus.WithError(err).Error("error writing response")
			}
		})
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r) {
		return
	}
	if s.IsHealthy() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r) {
		return
	}
	if s.IsReady() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"healthy":      s.IsHealthy(),
		"ready":        s.IsReady(),
		"repositories": s.GetRepositoryStatus(),
	})
}

func allowed(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("error writing response")
	}
}

// Auth is a middleware that checks the X-API-KEY header on every path except
// the health endpoints. If it is missing or wrong, it returns a 401
// Unauthorized response.
func Auth(next http.Handler, authKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-KEY")
		if key == "" || key != authKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
