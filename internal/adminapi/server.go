package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
)

// Server exposes a Manager as JSON/HTTP, mirroring the teacher's
// engine.Server: a thin router in front of a business-logic type, one
// handler per verb, and one router-level middleware that sets the JSON
// Content-Type and an X-Request-Id header on every response
// (services/serviceapi/internal/engine/server.go).
type Server struct {
	manager *Manager
	router  *mux.Router
}

// NewServer builds a Server around manager.
func NewServer(manager *Manager) *Server {
	s := &Server{manager: manager, router: mux.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Request-Id", uuid.NewString())
			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1/connectors").Subrouter()
	api.HandleFunc("", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("", s.handleAddConnInfo).Methods(http.MethodPost)
	api.HandleFunc("/{name}", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/{name}", s.handleDeleteConnInfo).Methods(http.MethodDelete)
	api.HandleFunc("/{name}/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/{name}/stop", s.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/{name}/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/{name}/resume", s.handleResume).Methods(http.MethodPost)
	api.HandleFunc("/{name}/set_offset", s.handleSetOffset).Methods(http.MethodPost)
	api.HandleFunc("/{name}/objmap", s.handleAddObjMap).Methods(http.MethodPost)
	api.HandleFunc("/{name}/objmap", s.handleDeleteObjMap).Methods(http.MethodDelete)
	api.HandleFunc("/{name}/extra_conninfo", s.handleAddExtraConnInfo).Methods(http.MethodPost)
	api.HandleFunc("/{name}/extra_conninfo", s.handleDeleteExtraConnInfo).Methods(http.MethodDelete)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, StatusOK)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{"connectors": s.manager.Names()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	snap, code := s.manager.Snapshot(name)
	if code != StatusOK {
		writeStatus(w, http.StatusNotFound, code)
		return
	}
	json.NewEncoder(w).Encode(snap)
}

type addConnInfoRequest struct {
	model.ConnectorConfig
	RuleFile string `json:"rule_file"`
}

func (s *Server) handleAddConnInfo(w http.ResponseWriter, r *http.Request) {
	var req addConnInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	code := s.manager.AddConnInfo(req.ConnectorConfig, req.RuleFile)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handleDeleteConnInfo(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	code := s.manager.DeleteConnInfo(name)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	code := s.manager.Start(r.Context(), name)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	code := s.manager.Stop(name)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	code := s.manager.Pause(name)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	code := s.manager.Resume(name)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handleSetOffset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req struct {
		Offset string `json:"offset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	code := s.manager.SetOffset(name, req.Offset)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handleAddObjMap(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req struct {
		Kind        string `json:"object_type"`
		Source      string `json:"source_object"`
		Destination string `json:"destination_object"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	code := s.manager.AddObjMap(name, rulestore.ObjectKind(req.Kind), req.Source, req.Destination)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handleDeleteObjMap(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req struct {
		Kind   string `json:"object_type"`
		Source string `json:"source_object"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	code := s.manager.DeleteObjMap(name, rulestore.ObjectKind(req.Kind), req.Source)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handleAddExtraConnInfo(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	code := s.manager.AddExtraConnInfo(name, req.Key, req.Value)
	writeStatus(w, httpStatusFor(code), code)
}

func (s *Server) handleDeleteExtraConnInfo(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	code := s.manager.DeleteExtraConnInfo(name, req.Key)
	writeStatus(w, httpStatusFor(code), code)
}

func writeStatus(w http.ResponseWriter, httpCode, status int) {
	w.WriteHeader(httpCode)
	json.NewEncoder(w).Encode(map[string]int{"status": status})
}

func httpStatusFor(code int) int {
	switch code {
	case StatusOK:
		return http.StatusOK
	case StatusNotFound:
		return http.StatusNotFound
	case StatusInvalidState:
		return http.StatusConflict
	case StatusAlreadyExists, StatusAlreadyRunning:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
