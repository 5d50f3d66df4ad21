package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

func formatBytes(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

func formatTransfer(completed, total int64) string {
	return fmt.Sprintf("%s / %s", humanize.Bytes(uint64(max(completed, 0))), humanize.Bytes(uint64(max(total, 0))))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04"), humanize.Time(t))
}
