package output

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

func StatusBar(ctx context.Context, refreshRate time.Duration, printF func()) {
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printF()
		case <-ctx.Done():
			return
		}
	}
}

func PrettyRecordStatus(elapsed time.Duration, providers string, pid int) string {
	target := "any process"
	if pid > 0 {
		target = fmt.Sprintf("PID %d", pid)
	}
	return fmt.Sprintf("%-30s %-40s %-20s",
		fmt.Sprintf("Recording: %s", elapsed.Truncate(time.Second)),
		fmt.Sprintf("Providers: %s", providers),
		fmt.Sprintf("Target: %s", target),
	)
}

func PrettySamples(n uint64) string {
	return humanize.Comma(int64(n))
}
