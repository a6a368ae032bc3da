package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/queue"
)

// Messages returned by StartPage.
const (
	MessageScheduled = "Batch processed, next batch scheduled"
	MessageComplete  = "Population complete"
)

// Pager runs the candidate set one page at a time. A cursor is the decimal offset of the
// first candidate of a page; the empty cursor is the first page.
type Pager struct {
	pipeline *Pipeline
	base     models.CandidateQuery
	queue    queue.Queue
	logger   *zap.Logger
}

// NewPager pages through candidates selected by base. q may be nil when StartPage is not used.
func NewPager(p *Pipeline, base models.CandidateQuery, q queue.Queue, logger *zap.Logger) *Pager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pager{pipeline: p, base: base, queue: q, logger: logger.With(zap.String("component", "pager"))}
}

// ParseCursor converts a cursor to an offset.
func ParseCursor(cursor string) (int, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, models.Validationf("invalid cursor %q", cursor)
	}
	return n, nil
}

// RunPage ingests the page at cursor. NextCursor is set when the page was full.
func (pg *Pager) RunPage(ctx context.Context, cursor string) (*models.PopulateReport, error) {
	offset, err := ParseCursor(cursor)
	if err != nil {
		return nil, err
	}
	q := pg.base
	q.Offset = offset

	report, err := pg.pipeline.Run(ctx, q)
	if err != nil {
		return report, err
	}
	report.Cursor = strconv.Itoa(offset)
	if q.Limit > 0 && report.Candidates >= q.Limit {
		report.NextCursor = strconv.Itoa(offset + report.Candidates)
	}
	return report, nil
}

// StartPage ingests the page at cursor and, when more candidates remain, schedules the next
// page on the work queue.
func (pg *Pager) StartPage(ctx context.Context, cursor string) (*models.StartPopulateResponse, error) {
	report, err := pg.RunPage(ctx, cursor)
	if err != nil {
		return nil, err
	}
	resp := &models.StartPopulateResponse{Message: MessageComplete, PopulateReport: report}
	if report.NextCursor == "" {
		pg.logger.Info("population complete", zap.String("cursor", report.Cursor))
		return resp, nil
	}
	if pg.queue == nil {
		return nil, errors.New("no work queue configured")
	}
	if err := pg.queue.Send(ctx, queue.NewMessage(report.NextCursor)); err != nil {
		return nil, fmt.Errorf("schedule page %s: %w", report.NextCursor, err)
	}
	pg.logger.Info("next page scheduled", zap.String("cursor", report.NextCursor))
	resp.Message = MessageScheduled
	return resp, nil
}

// HandleMessage runs the page named by a queue message. It is a queue.Handler.
func (pg *Pager) HandleMessage(ctx context.Context, msg *queue.Message) error {
	_, err := pg.StartPage(ctx, msg.Cursor)
	return err
}

// RunAll ingests pages starting at cursor until the candidate set is exhausted, calling onPage
// after each one.
func (pg *Pager) RunAll(ctx context.Context, cursor string, onPage func(*models.PopulateReport)) ([]*models.PopulateReport, error) {
	var reports []*models.PopulateReport
	for {
		report, err := pg.RunPage(ctx, cursor)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
		if onPage != nil {
			onPage(report)
		}
		if report.NextCursor == "" {
			return reports, nil
		}
		cursor = report.NextCursor
	}
}
