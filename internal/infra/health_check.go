package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// MonitorExecutable signals once the running binary is replaced on disk, so a
// supervisor can restart the process on the new build.
func MonitorExecutable(ctx context.Context, interval time.Duration) <-chan struct{} {
	ch := make(chan struct{}, 1)
	entry := log.WithField("object", "MonitorExecutable")

	exeFilename, err := os.Executable()
	if err != nil {
		entry.WithField("error", err.Error()).Warn("cant resolve executable path")
		return ch
	}
	stat, err := os.Stat(exeFilename)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("cant stat executable")
		return ch
	}
	originalTime := stat.ModTime()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(exeFilename)
				if err != nil {
					entry.WithField("error", err.Error()).Debug("cant stat executable")
					continue
				}
				if !originalTime.Equal(stat.ModTime()) {
					ch <- struct{}{}
					return
				}
			}
		}
	}()
	return ch
}
