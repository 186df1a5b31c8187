package sdk

import (
	"context"
	"fmt"
	"time"
)

// WaitForScan polls ScanStatus until the scan reaches a terminal state or the
// context expires. A failed scan returns the final progress together with an
// error carrying the scan's failure message.
func (c *Client) WaitForScan(ctx context.Context, interval time.Duration) (*ScanProgress, error) {
	if interval <= 0 {
		interval = c.pollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		progress, err := c.ScanStatus(ctx)
		if err != nil {
			return nil, err
		}
		if progress.Done() {
			if progress.Status == "failed" {
				return progress, fmt.Errorf("scan failed: %s", progress.Error)
			}
			return progress, nil
		}

		select {
		case <-ctx.Done():
			return progress, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForMigration polls MigrationStatus until the batch reaches a terminal
// state or the context expires. A failed batch returns the final snapshot
// together with an error.
func (c *Client) WaitForMigration(ctx context.Context, interval time.Duration) (*MigrationSnapshot, error) {
	if interval <= 0 {
		interval = c.pollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := c.MigrationStatus(ctx)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, fmt.Errorf("no migration batch has been started")
		}
		if snap.Done() {
			if snap.Status == "failed" {
				return snap, fmt.Errorf("migration batch %s failed", snap.BatchID)
			}
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

// FailedRepos returns the names of repositories whose jobs failed, in no
// particular order.
func (s *MigrationSnapshot) FailedRepos() []string {
	var failed []string
	for name, job := range s.Repos {
		if job.Status == "failed" {
			failed = append(failed, name)
		}
	}
	return failed
}
