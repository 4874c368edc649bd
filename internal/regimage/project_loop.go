package regimage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/procmodel"
)

// ProjectionPeriod is the fixed 1.00s register-projection tick. It is
// out-of-band with the Scan Driver's own period — the two are not
// phase-locked, so a reader may observe either cycle N or N+1.
const ProjectionPeriod = 1 * time.Second

// RunProjectionLoop snapshots the model and writes the projection table
// into img every ProjectionPeriod, until ctx is canceled.
func RunProjectionLoop(ctx context.Context, m *procmodel.Model, img *Image, log *logrus.Entry) {
	ticker := time.NewTicker(ProjectionPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("register projection stopped")
			return
		case <-ticker.C:
			snapshot := m.Snapshot()
			img.WriteBatch(Project(snapshot))
			log.WithField("registers", len(Table)).Debug("register image refreshed")
		}
	}
}
