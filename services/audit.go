package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/driveline-au/quote-backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionLog is the in-memory, human-readable log kept for one batch run.
// It exists purely for observability during a run; it is not the durable
// record and may be cleared by the operator without affecting correctness.
type SessionLog struct {
	mu    sync.Mutex
	lines []string
}

// Appendf adds a timestamped line to the session log.
func (l *SessionLog) Appendf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
	l.lines = append(l.lines, line)
}

// Lines returns a copy of the current log lines.
func (l *SessionLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Clear resets the session log.
func (l *SessionLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
}

// AuditLogger appends structured step-level execution records to durable
// storage and mirrors a one-line summary into the batch's session log.
// Durable append is best effort: a store failure is logged and swallowed so
// an audit problem never fails a record's business processing, but the append
// is awaited so log order matches outcomes.
type AuditLogger struct {
	store Store

	mu       sync.RWMutex
	sessions map[uuid.UUID]*SessionLog
}

func NewAuditLogger(store Store) *AuditLogger {
	return &AuditLogger{
		store:    store,
		sessions: make(map[uuid.UUID]*SessionLog),
	}
}

// SessionFor returns the session log for a batch, creating it on first use.
func (a *AuditLogger) SessionFor(batchID uuid.UUID) *SessionLog {
	a.mu.RLock()
	session, exists := a.sessions[batchID]
	a.mu.RUnlock()
	if exists {
		return session
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if session, exists = a.sessions[batchID]; exists {
		return session
	}
	session = &SessionLog{}
	a.sessions[batchID] = session
	return session
}

// DropSession discards the in-memory session log for a batch.
func (a *AuditLogger) DropSession(batchID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, batchID)
}

// SessionBatchIDs returns the batch ids with a live session log.
func (a *AuditLogger) SessionBatchIDs() []uuid.UUID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Log appends one audit row for a (record, step) pair. The entry's id and
// creation time are filled here.
func (a *AuditLogger) Log(ctx context.Context, entry *models.AuditEntry) {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()

	if err := a.store.AppendAuditLog(ctx, entry); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "AuditLogger",
			"batch_id":  entry.BatchID,
			"record_id": entry.RecordID,
			"action":    entry.Action,
		}).Warnf("Failed to append durable audit row (continuing): %v", err)
	}

	session := a.SessionFor(entry.BatchID)
	if entry.Status == models.AuditStatusSuccess {
		session.Appendf("record %d: %s succeeded in %dms (%s)", entry.RecordID, entry.Action, entry.ElapsedMs, entry.Endpoint)
	} else {
		message := ""
		if entry.ErrorMessage != nil {
			message = *entry.ErrorMessage
		}
		session.Appendf("record %d: %s failed in %dms (%s): %s", entry.RecordID, entry.Action, entry.ElapsedMs, entry.Endpoint, message)
	}

	logFields := logrus.Fields{
		"component":  "AuditLogger",
		"batch_id":   entry.BatchID,
		"record_id":  entry.RecordID,
		"action":     entry.Action,
		"status":     entry.Status,
		"endpoint":   entry.Endpoint,
		"elapsed_ms": entry.ElapsedMs,
	}
	if entry.ErrorMessage != nil {
		logFields["error_msg"] = *entry.ErrorMessage
	}

	if entry.Status == models.AuditStatusSuccess {
		logrus.WithFields(logFields).Debug("Audit log entry")
	} else {
		logrus.WithFields(logFields).Warn("Audit log entry - step failed")
	}
}
