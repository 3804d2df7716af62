package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// decisionRecord is one JSONL line in the audit log.
type decisionRecord struct {
	TsUnixMs int64  `json:"ts_unix_ms"`
	Backend  string `json:"backend"`
	Op       string `json:"op"`
	Decision string `json:"decision"`
	Cost     uint64 `json:"cost"`
	WaitMs   int64  `json:"wait_ms,omitempty"`
}

// decisionLog appends decision records to a JSONL file for audit/replay.
// Writes are buffered and flushed at most every 100ms to keep the hot path
// cheap.
type decisionLog struct {
	mu        sync.Mutex
	f         *os.File
	w         *bufio.Writer
	lastFlush time.Time
}

var (
	logMu  sync.Mutex
	curLog *decisionLog
)

func openDecisionLog(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l := &decisionLog{f: f, w: bufio.NewWriterSize(f, 1<<16), lastFlush: time.Now()}
	logMu.Lock()
	old := curLog
	curLog = l
	logMu.Unlock()
	if old != nil {
		old.close()
	}
	return nil
}

func logDecision(backend, op, decision string, cost uint64, wait time.Duration) {
	logMu.Lock()
	l := curLog
	logMu.Unlock()
	if l == nil {
		return
	}
	l.append(decisionRecord{
		TsUnixMs: time.Now().UnixMilli(),
		Backend:  backend,
		Op:       op,
		Decision: decision,
		Cost:     cost,
		WaitMs:   wait.Milliseconds(),
	})
}

func (l *decisionLog) append(rec decisionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	enc := json.NewEncoder(l.w)
	_ = enc.Encode(&rec)
	if time.Since(l.lastFlush) > 100*time.Millisecond {
		_ = l.w.Flush()
		l.lastFlush = time.Now()
	}
}

func (l *decisionLog) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.w.Flush()
	_ = l.f.Close()
}

// FlushDecisionLog forces any buffered decision records to disk. Intended for
// shutdown paths and tests.
func FlushDecisionLog() {
	logMu.Lock()
	l := curLog
	logMu.Unlock()
	if l == nil {
		return
	}
	l.mu.Lock()
	_ = l.w.Flush()
	l.lastFlush = time.Now()
	l.mu.Unlock()
}
