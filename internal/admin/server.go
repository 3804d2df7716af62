// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package admin implements the HTTP configuration surface for a host: quota
// and burst updates, clears (with wildcards), and the two introspection
// endpoints. It translates HTTP parameters into host calls and host errors
// into status codes.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"ratelimitfs"
	"ratelimitfs/host"
)

// Server handles the admin HTTP requests for one host instance.
type Server struct {
	host *host.Host
}

// NewServer creates an admin server over the given host.
func NewServer(h *host.Host) *Server {
	return &Server{host: h}
}

// RegisterRoutes sets up the HTTP routes on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/quota", s.handleSetQuota)
	mux.HandleFunc("/burst", s.handleSetBurst)
	mux.HandleFunc("/clear", s.handleClear)
	mux.HandleFunc("/wrap", s.handleWrap)
	mux.HandleFunc("/limits", s.handleLimits)
	mux.HandleFunc("/backends", s.handleBackends)
}

// limitRow is the JSON shape of one configured key in /limits responses.
type limitRow struct {
	Backend string `json:"backend"`
	Op      string `json:"op"`
	Rate    int64  `json:"rate"`
	Mode    string `json:"mode"`
	Burst   int64  `json:"burst"`
}

func (s *Server) handleSetQuota(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	backend := r.URL.Query().Get("backend")
	op := r.URL.Query().Get("op")
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "blocking"
	}
	value, err := parseValue(r.URL.Query().Get("value"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.host.SetQuota(backend, op, value, mode); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetBurst(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	backend := r.URL.Query().Get("backend")
	op := r.URL.Query().Get("op")
	value, err := parseValue(r.URL.Query().Get("value"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.host.SetBurst(backend, op, value); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	backend := r.URL.Query().Get("backend")
	op := r.URL.Query().Get("op")
	if backend == "" || op == "" {
		http.Error(w, "backend and op are required (\"*\" to match all)", http.StatusBadRequest)
		return
	}
	if err := s.host.Clear(backend, op); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	backend := r.URL.Query().Get("backend")
	facade, err := s.host.Wrap(backend)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"wrapped": facade.Name()})
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	views := s.host.Limits()
	rows := make([]limitRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, limitRow{
			Backend: v.Backend,
			Op:      v.Op.String(),
			Rate:    v.Rate,
			Mode:    v.Mode.String(),
			Burst:   v.Burst,
		})
	}
	writeJSON(w, rows)
}

func (s *Server) handleBackends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.host.Names())
}

func parseValue(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("value is required")
	}
	return strconv.ParseInt(raw, 10, 64)
}

func writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, ratelimitfs.ErrInvalidConfig) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logrus.WithError(err).Error("admin request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encoding admin response")
	}
}

// ListenAndServe starts the admin server on the specified address with the
// usual timeouts.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logrus.WithField("addr", addr).Info("admin API listening")
	return httpServer.ListenAndServe()
}
