package sandbox

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const minMemLimitMB = 256

// DefaultCPULimit returns half the host CPUs, floored at one, formatted
// the way the container runtime expects ("2", "1.5").
func DefaultCPULimit() string {
	count := runtime.NumCPU()
	if count < 1 {
		count = 1
	}
	half := float64(count) / 2.0
	if half < 1 {
		half = 1
	}
	if half == float64(int64(half)) {
		return strconv.FormatInt(int64(half), 10)
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", half), "0"), ".")
}

// DefaultMemLimit returns half the host memory with a 256 MiB floor, as a
// container runtime size string. Falls back to 1g when the host total
// cannot be read.
func DefaultMemLimit() string {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return "1g"
	}
	totalBytes := uint64(info.Totalram) * uint64(info.Unit)
	if totalBytes == 0 {
		return "1g"
	}
	halfMB := totalBytes / 2 / (1024 * 1024)
	if halfMB < minMemLimitMB {
		halfMB = minMemLimitMB
	}
	return fmt.Sprintf("%dm", halfMB)
}
