package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seojun-park/kisbot/internal/domain"
)

// reportTTL bounds how long a stale report answers status queries.
const reportTTL = 24 * time.Hour

const lastReportKey = "report:last"

// ReportCache implements domain.ReportCache using a single JSON value.
type ReportCache struct {
	rdb *redis.Client
}

// NewReportCache creates a ReportCache backed by the given Client.
func NewReportCache(c *Client) *ReportCache {
	return &ReportCache{rdb: c.Underlying()}
}

// SetLastReport stores the most recent run report.
func (rc *ReportCache) SetLastReport(ctx context.Context, report domain.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: encode report: %w", err)
	}
	if err := rc.rdb.Set(ctx, lastReportKey, data, reportTTL).Err(); err != nil {
		return fmt.Errorf("redis: set last report: %w", err)
	}
	return nil
}

// LastReport retrieves the most recent run report. It returns
// domain.ErrNotFound when no run has completed yet.
func (rc *ReportCache) LastReport(ctx context.Context) (domain.RunReport, error) {
	data, err := rc.rdb.Get(ctx, lastReportKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RunReport{}, domain.ErrNotFound
		}
		return domain.RunReport{}, fmt.Errorf("redis: get last report: %w", err)
	}

	var report domain.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.RunReport{}, fmt.Errorf("redis: decode report: %w", err)
	}
	return report, nil
}

// Compile-time interface check.
var _ domain.ReportCache = (*ReportCache)(nil)
