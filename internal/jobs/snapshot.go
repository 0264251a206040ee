package jobs

import (
	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/reliability"
)

// SnapshotJob runs the periodic database snapshot.
type SnapshotJob struct {
	snapshots *reliability.SnapshotService
	log       zerolog.Logger
}

// NewSnapshotJob creates the snapshot job.
func NewSnapshotJob(snapshots *reliability.SnapshotService, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		snapshots: snapshots,
		log:       log.With().Str("job", "snapshot").Logger(),
	}
}

// Name returns the job name.
func (j *SnapshotJob) Name() string { return "snapshot" }

// Run creates one snapshot archive.
func (j *SnapshotJob) Run() error {
	_, err := j.snapshots.Snapshot()
	return err
}
