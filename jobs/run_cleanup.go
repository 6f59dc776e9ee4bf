package jobs

import (
	"time"

	"github.com/driveline-au/quote-backend/services"
	"github.com/sirupsen/logrus"
)

// RunCleanupJob evicts finished batch runs and their session logs from
// memory once the retention window has passed. The durable rows remain.
type RunCleanupJob struct {
	Registry  *services.RunRegistry
	Audit     *services.AuditLogger
	Retention time.Duration
}

func NewRunCleanupJob(registry *services.RunRegistry, audit *services.AuditLogger, retention time.Duration) *RunCleanupJob {
	return &RunCleanupJob{
		Registry:  registry,
		Audit:     audit,
		Retention: retention,
	}
}

func (j *RunCleanupJob) Run() {
	logrus.Info("Starting batch run cleanup job")

	evicted := j.Registry.EvictFinished(j.Retention)
	for _, batchID := range evicted {
		j.Audit.DropSession(batchID)
	}

	logrus.Infof("Batch run cleanup job completed: %d runs evicted, %d retained",
		len(evicted), j.Registry.Count())
}
