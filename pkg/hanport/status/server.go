// Package status serves the collector's health and diagnostics endpoints.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/julienschmidt/httprouter"

	"github.com/sognelys/hanport/pkg/hanport"
)

// Server exposes GET /healthz, GET /stats and GET /last over plain HTTP.
// Stats come from a callback so the page always shows live counters; the
// last telegram is pushed in by the collector loop.
type Server struct {
	srv   *http.Server
	stats func() hanport.Stats

	mu   sync.RWMutex
	last *hanport.Telegram
}

func NewServer(listen string, stats func() hanport.Stats) *Server {
	return &Server{
		srv:   &http.Server{Addr: listen},
		stats: stats,
	}
}

// SetLast records the most recent telegram for GET /last.
func (s *Server) SetLast(t *hanport.Telegram) {
	s.mu.Lock()
	s.last = t
	s.mu.Unlock()
}

func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func (s *Server) Run(ctx context.Context) error {
	handler := httprouter.New()

	handler.GET("/healthz", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	handler.GET("/stats", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.stats())
	})

	handler.GET("/last", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		last := s.last
		s.mu.RUnlock()
		if last == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(last)
	})

	s.srv.Handler = handler

	go func() {
		<-ctx.Done()
		s.srv.Shutdown(context.Background())
	}()

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
