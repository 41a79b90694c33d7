// Package web provides an HTTP face for the gpio-tach daemon: a status page,
// and the counter's read/write interface over HTTP.
package web

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/sweeney/gpio-tach/internal/device"
	"github.com/sweeney/gpio-tach/internal/status"
)

// maxResetBody bounds how much of a reset request body is read.
const maxResetBody = 4096

// Server serves the status page and the counter face over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	face       *device.Face
}

// New creates a Server that reads state from the given tracker and counter
// face.
func New(addr string, tracker *status.Tracker, face *device.Face) *Server {
	s := &Server{tracker: tracker, face: face}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/count", s.handleCount)
	mux.HandleFunc("/reset", s.handleReset)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleCount returns the live count exactly as a device read would.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h, ok := s.open(w)
	if !ok {
		return
	}
	defer h.Close()

	buf := make([]byte, device.Width)
	n, err := h.Read(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(buf[:n])
}

// handleReset writes the request body to the face.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxResetBody))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	h, ok := s.open(w)
	if !ok {
		return
	}
	defer h.Close()

	n, err := h.Write(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if n > 0 {
		log.Printf("web: total reset by %s", r.RemoteAddr)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatWritten(n))
}

func (s *Server) open(w http.ResponseWriter) (*device.Handle, bool) {
	h, err := s.face.Open()
	if errors.Is(err, device.ErrBusy) {
		http.Error(w, "device busy", http.StatusConflict)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return h, true
}
