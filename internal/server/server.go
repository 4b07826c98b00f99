// Package server exposes the plugin registry, pipeline executor and
// batch orchestrator over HTTP plus a websocket progress feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"neuropixel/internal/batch"
	"neuropixel/internal/pipeline"
	"neuropixel/internal/plugin"
	"neuropixel/internal/store"
)

// Server wires the HTTP layer to the core components.
type Server struct {
	addr     string
	registry *plugin.Registry
	orch     *batch.Orchestrator
	store    *store.Store
	reload   func() (int, error)
	log      *slog.Logger
	server   *http.Server
	upgrader websocket.Upgrader
}

// NewServer builds a server. reload re-runs plugin discovery on
// demand; pass nil to disable the reload endpoint.
func NewServer(addr string, reg *plugin.Registry, orch *batch.Orchestrator, st *store.Store, reload func() (int, error), log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		addr:     addr,
		registry: reg,
		orch:     orch,
		store:    st,
		reload:   reload,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	r := mux.NewRouter()
	s.setupRoutes(r)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info("server starting", "addr", s.addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) setupRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	r.HandleFunc("/plugins", s.handlePluginList).Methods("GET")
	r.HandleFunc("/plugins/categories", s.handlePluginCategories).Methods("GET")
	r.HandleFunc("/plugins/reload", s.handlePluginReload).Methods("POST")
	r.HandleFunc("/plugins/{name}", s.handlePluginDescribe).Methods("GET")

	r.HandleFunc("/batch/run", s.handleBatchRun).Methods("POST")
	r.HandleFunc("/batch/active", s.handleBatchActive).Methods("GET")
	r.HandleFunc("/batch/ws", s.handleBatchWS).Methods("GET")
	r.HandleFunc("/batch/{id}", s.handleBatchStatus).Methods("GET")
	r.HandleFunc("/batch/{id}/cancel", s.handleBatchCancel).Methods("POST")

	r.HandleFunc("/images", s.handleImageList).Methods("GET")
	r.HandleFunc("/images/upload", s.handleImageUpload).Methods("POST")
	r.HandleFunc("/images/{id}", s.handleImageDelete).Methods("DELETE")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handlePluginList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"capabilities": s.registry.List(),
		"count":        s.registry.Len(),
	})
}

func (s *Server) handlePluginCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.ListByCategory())
}

func (s *Server) handlePluginDescribe(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	desc, ok := s.registry.Describe(name)
	if !ok {
		writeError(w, http.StatusNotFound, "capability not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handlePluginReload(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		writeError(w, http.StatusNotImplemented, "reload not configured")
		return
	}
	n, err := s.reload()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registered": n})
}

// batchRequest is the submission wire form: a pipeline plus the
// ordered input references to run it over.
type batchRequest struct {
	Pipeline pipeline.Pipeline `json:"pipeline"`
	Inputs   []string          `json:"inputs"`
}

func (s *Server) handleBatchRun(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Inputs) == 0 {
		writeError(w, http.StatusBadRequest, "no inputs provided")
		return
	}

	id, err := s.orch.Submit(req.Pipeline, req.Inputs)
	if err != nil {
		var verr *batch.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":    "invalid pipeline",
				"problems": verr.Problems,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := s.orch.Status(id)
	if errors.Is(err, batch.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleBatchCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.orch.Cancel(id); errors.Is(err, batch.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found: "+id)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id, "status": "cancel_requested"})
}

func (s *Server) handleBatchActive(w http.ResponseWriter, r *http.Request) {
	active := s.orch.Active()
	if active == nil {
		active = []batch.Snapshot{}
	}
	writeJSON(w, http.StatusOK, active)
}

// wsStatusMessage is what "status" text frames get back: the active
// jobs at that instant, pulled on demand.
type wsStatusMessage struct {
	Type string           `json:"type"`
	Jobs []batch.Snapshot `json:"jobs"`
}

// handleBatchWS upgrades the connection and streams progress
// snapshots. A single writer goroutine owns the connection's write
// side; the read loop only forwards "status" requests into it.
func (s *Server) handleBatchWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	snaps, unsubscribe := s.orch.Broadcaster().Subscribe()
	defer unsubscribe()

	statusReq := make(chan struct{}, 1)
	readDone := make(chan struct{})

	go func() {
		defer close(readDone)
		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.TextMessage && string(msg) == "status" {
				select {
				case statusReq <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-readDone:
			return
		case <-statusReq:
			active := s.orch.Active()
			if active == nil {
				active = []batch.Snapshot{}
			}
			if err := conn.WriteJSON(wsStatusMessage{Type: "status", Jobs: active}); err != nil {
				return
			}
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleImageList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []store.ImageRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleImageUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	dst := filepath.Join(s.store.UploadDir(), filepath.Base(header.Filename))
	out, err := os.Create(dst)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out.Close()

	rec, err := s.store.Register(dst, header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "not a usable image: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleImageDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.Remove(id); err != nil {
		if errors.Is(err, store.ErrImageNotFound) {
			writeError(w, http.StatusNotFound, "image not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
