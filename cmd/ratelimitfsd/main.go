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

// Package main provides the entry point for the rate-limited file-system
// demo daemon.
//
// The daemon registers a local-disk backend, wraps it in the rate-limiting
// facade, optionally applies initial read/write quotas from flags, and serves
// the admin HTTP API so limits can be reconfigured live:
//
//	curl -X POST "http://localhost:8080/quota?backend=local&op=read&value=1048576&mode=non_blocking"
//	curl "http://localhost:8080/limits"
//
// tools/fs-loadgen exercises the same facade in-process, with its own local
// backend and quotas; it does not talk to this daemon.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ratelimitfs/fsys/localfs"
	"ratelimitfs/host"
	"ratelimitfs/internal/admin"
	"ratelimitfs/telemetry"
)

func main() {
	var (
		httpAddr    = flag.String("http_addr", ":8080", "Admin HTTP listen address (e.g. :8080)")
		backendName = flag.String("backend", "local", "Name to register the local backend under")
		readRate    = flag.Int64("read_rate", 0, "Initial read rate in bytes/second (0 = unlimited)")
		readBurst   = flag.Int64("read_burst", 0, "Initial read burst in bytes (0 = uncapped)")
		writeRate   = flag.Int64("write_rate", 0, "Initial write rate in bytes/second (0 = unlimited)")
		writeBurst  = flag.Int64("write_burst", 0, "Initial write burst in bytes (0 = uncapped)")
		mode        = flag.String("mode", "blocking", "Mode for the initial quotas: blocking|non_blocking")
		logLevel    = flag.String("log_level", "info", "Log level: debug|info|warn|error")
		// Telemetry flags (opt-in)
		metricsEnabled = flag.Bool("metrics", false, "Enable Prometheus decision metrics (opt-in)")
		metricsAddr    = flag.String("metrics_addr", "", "If non-empty, expose Prometheus /metrics on this address (e.g. :9090)")
		decisionLog    = flag.String("decision_log", "", "If non-empty, append one JSON line per limiter decision to this file")
	)
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid -log_level")
	}
	logrus.SetLevel(level)

	if err := telemetry.Enable(telemetry.Config{
		Enabled:         *metricsEnabled || *decisionLog != "",
		MetricsAddr:     *metricsAddr,
		DecisionLogPath: *decisionLog,
	}); err != nil {
		logrus.WithError(err).Fatal("enabling telemetry")
	}

	h := host.New()
	if err := h.Register(localfs.New(*backendName)); err != nil {
		logrus.WithError(err).Fatal("registering backend")
	}
	if _, err := h.Wrap(*backendName); err != nil {
		logrus.WithError(err).Fatal("wrapping backend")
	}

	for _, q := range []struct {
		op          string
		rate, burst int64
	}{
		{"read", *readRate, *readBurst},
		{"write", *writeRate, *writeBurst},
	} {
		if q.rate > 0 {
			if err := h.SetQuota(*backendName, q.op, q.rate, *mode); err != nil {
				logrus.WithError(err).Fatal("applying initial quota")
			}
		}
		if q.burst > 0 {
			if err := h.SetBurst(*backendName, q.op, q.burst); err != nil {
				logrus.WithError(err).Fatal("applying initial burst")
			}
		}
	}

	server := admin.NewServer(h)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(*httpAddr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logrus.Info("shutting down")
	case err := <-errCh:
		logrus.WithError(err).Error("admin server exited")
	}

	telemetry.FlushDecisionLog()
	// Give buffered log output a moment before the process ends.
	time.Sleep(50 * time.Millisecond)
}
