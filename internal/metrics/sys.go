package metrics

import (
	"fmt"
	"os"
	"runtime"
)

// SysHealth is a point-in-time view of the process and its database files.
type SysHealth struct {
	AllocMB    uint64
	SysMB      uint64
	NumGC      uint32
	Goroutines int
	DBSize     string
}

// GetSysHealth collects real-time health data. dbPath is the SQLite file;
// its WAL and shared-memory siblings are counted too.
func GetSysHealth(dbPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		AllocMB:    m.Alloc / 1024 / 1024,
		SysMB:      m.Sys / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		DBSize:     FormatBytes(databaseSize(dbPath)),
	}
}

func databaseSize(dbPath string) int64 {
	var size int64
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			size += info.Size()
		}
	}
	return size
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
