// internal/service/service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/queue"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination mirrors the block returned with every list endpoint.
type Pagination map[string]int

func normalizePage(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

func newPagination(page, pageSize, total int) Pagination {
	return Pagination{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
}

// events publishes notification events. Failures are logged and not returned.
type events struct {
	Queue queue.Queue
	Log   *zap.Logger
}

func (e events) publish(ctx context.Context, ev model.Event) {
	if e.Queue == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := e.Queue.Publish(ctx, queue.TopicNotifications, ev); err != nil {
		e.logger().Warn("failed to publish event", zap.String("kind", ev.Kind), zap.Error(err))
	}
}

func (e events) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
