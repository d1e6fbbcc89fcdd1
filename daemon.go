package cfddns

import (
	"context"
	"fmt"
	"io"
	"time"
)

// RunDaemon runs a reconciliation pass immediately and then,
// unless once is set, again every interval until ctx is done.
//
// The interval is measured from the end of one pass to the start of the next.
// A failed pass is reported to console and never stops the loop.
// In once mode RunDaemon returns nil after the first pass whatever its outcome;
// otherwise it only returns when ctx is done, with ctx.Err().
func RunDaemon(ctx context.Context, ddnsClient DDNSClient, interval time.Duration, once bool, console *Console) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if console == nil {
		console = NewConsole(io.Discard)
	}

	console.Section("Initial DDNS Update")
	if err := ddnsClient.RunDDNS(ctx); err != nil {
		console.Fail("Initial update failed: %s", err)
	}

	if once {
		console.Section("Completed (one-time mode)")
		return nil
	}

	console.Section(fmt.Sprintf("Starting update loop (%ds interval)", int(interval/time.Second)))
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		console.Step("Scheduled Update")
		if err := ddnsClient.RunDDNS(ctx); err != nil {
			console.Fail("Scheduled update failed: %s", err)
		}
		timer.Reset(interval)
	}
}
