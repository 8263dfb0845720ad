// Package service exposes the Data Replicator over HTTP: a status
// surface for operators plus a Prometheus scrape endpoint. Grounded on
// the teacher's service/http_service.go (same NewHttpServer/Start/Stop
// shape, same json-request-body handler style), generalized from
// per-job CCR administration to a single replicator's lifecycle plus a
// small job registry backed by the same storage.Storage an operator
// uses to track more than one named replication from one process.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl"
	"github.com/doriscore/datareplicator/repl/storage"
	"github.com/doriscore/datareplicator/xerror"
)

// HttpService serves one Data Replicator's operator surface: status,
// pause/resume/shutdown, and a job registry for bookkeeping across
// restarts. A real multi-replication deployment runs one HttpService
// per process, each fronting its own DataReplicator.
type HttpService struct {
	port     int
	server   *http.Server
	mux      *http.ServeMux
	hostInfo string

	store storage.Storage
	repl  *repl.DataReplicator
	name  string
}

func NewHttpServer(host string, port int, store storage.Storage, r *repl.DataReplicator, name string) *HttpService {
	return &HttpService{
		port:     port,
		mux:      http.NewServeMux(),
		hostInfo: fmt.Sprintf("%s:%d", host, port),

		store: store,
		repl:  r,
		name:  name,
	}
}

type statusResponse struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	LastTimestampFetched string `json:"lastTimestampFetched"`
	LastTimestampApplied string `json:"lastTimestampApplied"`
}

func (s *HttpService) statusHandler(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Name:                 s.name,
		State:                s.repl.State().String(),
		LastTimestampFetched: s.repl.LastTimestampFetched().String(),
		LastTimestampApplied: s.repl.LastTimestampApplied().String(),
	}
	data, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

func (s *HttpService) pauseHandler(w http.ResponseWriter, r *http.Request) {
	log.Infof("pause replication %s", s.name)
	s.repl.Pause()
	w.Write([]byte("pause success"))
}

func (s *HttpService) resumeHandler(w http.ResponseWriter, r *http.Request) {
	log.Infof("resume replication %s", s.name)
	if err := s.repl.Resume(true); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write([]byte("resume success"))
}

func (s *HttpService) shutdownHandler(w http.ResponseWriter, r *http.Request) {
	log.Infof("shutdown replication %s", s.name)
	s.repl.Shutdown()
	w.Write([]byte("shutdown success"))
}

type jobRegisterRequest struct {
	Name string `json:"name"`
	Info string `json:"info"`
}

// registerJobHandler lets an operator record that this replication
// exists (name + an implementation-defined config blob) so a restart
// can discover it again via /jobs; the replicator itself never reads
// this registry back, matching the distilled spec's silence on job
// persistence.
func (s *HttpService) registerJobHandler(w http.ResponseWriter, r *http.Request) {
	var req jobRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is empty", http.StatusBadRequest)
		return
	}

	var err error
	if exists, e := s.store.IsJobExist(req.Name); e != nil {
		http.Error(w, e.Error(), http.StatusInternalServerError)
		return
	} else if exists {
		err = s.store.UpdateJob(req.Name, req.Info)
	} else {
		err = s.store.AddJob(req.Name, req.Info)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write([]byte("register success"))
}

func (s *HttpService) jobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.GetAllJobs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

// docsHandler is a debug endpoint for inspecting what the Database
// Cloner has written for one namespace during Initial Sync.
func (s *HttpService) docsHandler(w http.ResponseWriter, r *http.Request) {
	db := r.URL.Query().Get("db")
	coll := r.URL.Query().Get("collection")
	if db == "" || coll == "" {
		http.Error(w, "db and collection query params are required", http.StatusBadRequest)
		return
	}

	bodies, err := s.store.ListNamespaceDocs(r.Context(), model.Namespace{Database: db, Collection: coll})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, "[%s]", joinJSON(bodies))
}

func joinJSON(bodies []string) string {
	out := ""
	for i, b := range bodies {
		if i > 0 {
			out += ","
		}
		out += b
	}
	return out
}

func (s *HttpService) RegisterHandlers() {
	s.mux.HandleFunc("/status", s.statusHandler)
	s.mux.HandleFunc("/pause", s.pauseHandler)
	s.mux.HandleFunc("/resume", s.resumeHandler)
	s.mux.HandleFunc("/shutdown", s.shutdownHandler)
	s.mux.HandleFunc("/jobs/register", s.registerJobHandler)
	s.mux.HandleFunc("/jobs", s.jobsHandler)
	s.mux.HandleFunc("/docs", s.docsHandler)

	// xmetrics.InitGlobal already registered a hashicorp/go-metrics
	// Prometheus sink against the default registerer; promhttp just
	// needs to gather from it.
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *HttpService) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Infof("http service listening on %s", addr)

	s.RegisterHandlers()

	s.server = &http.Server{Addr: addr, Handler: s.mux}
	err := s.server.ListenAndServe()
	if err == nil || err == http.ErrServerClosed {
		log.Info("http service closed")
		return nil
	}
	return xerror.Wrapf(err, xerror.Normal, xerror.KindUnspecified, "http service start on %s failed", addr)
}

func (s *HttpService) Stop() error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(context.Background()); err != nil {
		return xerror.Wrapf(err, xerror.Normal, xerror.KindUnspecified, "http service close failed")
	}
	return nil
}
