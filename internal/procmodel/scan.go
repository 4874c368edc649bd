package procmodel

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ScanPeriod is the fixed 1.00s OB1 scan-cycle period. Missed deadlines
// are not caught up: the loop below is driven by a time.Ticker, which
// drops ticks the loop is too slow to receive instead of delivering them
// in a burst.
const ScanPeriod = 1 * time.Second

// RunScanLoop drives the model forward every ScanPeriod until ctx is
// canceled, logging the full snapshot each cycle — the Go-idiomatic,
// structured form of cpu_logic.py's "[DB UPDATE] {db.dump()}" line.
func RunScanLoop(ctx context.Context, m *Model, log *logrus.Entry) {
	log.Info("CPU in RUN mode. Starting OB1 scan cycle...")

	ticker := time.NewTicker(ScanPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scan cycle stopped")
			return
		case <-ticker.C:
			m.CycleUpdate()
			s := m.Snapshot()
			log.WithFields(logrus.Fields{
				"db1.temperature":    s.Temperature,
				"db1.pressure":       s.Pressure,
				"db1.motor1_running": s.Motor1Running,
				"db1.motor2_running": s.Motor2Running,
				"db10.level":         s.Level,
				"db10.valve_open":    s.ValveOpen,
				"db100.cpu_load":     s.CPULoad,
				"db100.scan_time":    s.ScanTime,
				"db100.error_code":   s.ErrorCode,
			}).Info("scan cycle complete")
		}
	}
}
