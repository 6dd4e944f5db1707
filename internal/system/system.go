// Package system probes the host (cores, memory, file limits) and finds
// input files on disk.
package system

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// estimatedContextBytes is a rough per-frame footprint of a built render
// context including its share of layer data.
const estimatedContextBytes = 1024

// InitResourceLimits raises the open-file soft limit so parallel slate
// writers do not hit EMFILE.
func InitResourceLimits(logger *slog.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("failed to read open file limit", "error", err)
		return
	}

	want := uint64(2048)
	if want > rLimit.Max {
		want = rLimit.Max
	}
	if rLimit.Cur >= want {
		return
	}
	rLimit.Cur = want

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("failed to raise open file limit", "error", err)
		return
	}
	logger.Debug("open file limit raised", "limit", rLimit.Cur)
}

// DefaultWorkers returns the number of physical cores, falling back to the
// logical CPU count when gopsutil cannot tell.
func DefaultWorkers() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// CheckPlanMemory returns an error when holding a plan of totalFrames
// contexts in memory would take more than half of the available RAM. A
// failure to read memory statistics is not an error.
func CheckPlanMemory(totalFrames int) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil
	}
	return checkPlanMemory(totalFrames, vm.Available)
}

func checkPlanMemory(totalFrames int, available uint64) error {
	if totalFrames <= 0 || available == 0 {
		return nil
	}
	need := uint64(totalFrames) * estimatedContextBytes
	if need > available/2 {
		return fmt.Errorf("plan of %d frames needs about %d MiB, only %d MiB available",
			totalFrames, need>>20, available>>20)
	}
	return nil
}

// FindLatestScript returns the most recently modified .yaml or .yml file in
// dir.
func FindLatestScript(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no script files found in %s", dir)
	}

	return latestFile, nil
}

// ResolveScript picks the script to load: explicit if set, else
// <dir>/scenes.yaml, else the newest script in dir.
func ResolveScript(explicit, dir string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	def := filepath.Join(dir, "scenes.yaml")
	if _, err := os.Stat(def); err == nil {
		return def, nil
	}
	return FindLatestScript(dir)
}
