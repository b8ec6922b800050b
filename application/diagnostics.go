package application

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/plumenote/eventstore/infrastructure/logging"
)

// Diagnostics records what startup probing learned about the data
// directory. It is informational only and never gates the lifecycle.
type Diagnostics struct {
	// ProbeOK reports whether a probe file could be written and removed
	// in the data directory. False usually means read-only storage.
	ProbeOK bool

	// ProbeErr is the failure behind a false ProbeOK.
	ProbeErr error

	// UsageBytes approximates the on-disk footprint of the directory.
	UsageBytes int64

	// CheckedAt is when the probe ran.
	CheckedAt time.Time
}

// RunDiagnostics probes dir for writability and estimates its on-disk
// usage. An empty dir (nothing on disk) reports a trivially succeeding
// probe.
func RunDiagnostics(dir string) *Diagnostics {
	d := &Diagnostics{ProbeOK: true, CheckedAt: time.Now()}
	if dir == "" {
		return d
	}

	name := filepath.Join(dir, ".probe-"+uuid.NewString())
	if err := os.WriteFile(name, []byte(uuid.NewString()), 0o600); err != nil {
		d.ProbeOK = false
		d.ProbeErr = err
	} else if err := os.Remove(name); err != nil {
		d.ProbeOK = false
		d.ProbeErr = err
	}

	d.UsageBytes = diskUsage(dir)

	logging.Debug().
		Add(logging.Dir(dir)).
		Add(logging.Bytes(d.UsageBytes)).
		Add(logging.Str("probe", probeLabel(d.ProbeOK))).
		Add(logging.ErrorField(d.ProbeErr)).
		Msg("storage diagnostics")

	return d
}

func probeLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// diskUsage walks dir summing file sizes. Unreadable entries are skipped;
// the estimate is best effort.
func diskUsage(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if info, ierr := entry.Info(); ierr == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
