package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddsfeed/sdk/internal/dispatch"
)

// OddsWriter consumes odds changes and market events from the
// dispatcher's buffers and writes them to the journal tables.
type OddsWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	odds    *dispatch.GrowableBuffer[dispatch.OddsChange]
	markets *dispatch.GrowableBuffer[dispatch.MarketEvent]

	db *pgxpool.Pool

	batchMu     sync.Mutex
	oddsBatch   []oddsRow
	eventBatch  []marketEventRow
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics     WriterMetrics
	instruments Instruments
}

// Instruments receives journal telemetry. Satisfied by the metrics
// package; a nil sink disables instrumentation.
type Instruments interface {
	ObserveJournalRows(table string, n int)
	ObserveJournalFlush(rows int)
	ObserveJournalFlushError()
}

// WriterMetrics tracks journal writer activity.
type WriterMetrics struct {
	OddsInserts   int64
	OddsErrors    int64
	EventInserts  int64
	EventErrors   int64
	Flushes       int64
	LastFlushTime time.Time
}

// NewOddsWriter creates a journal writer over the dispatcher buffers.
func NewOddsWriter(
	cfg WriterConfig,
	odds *dispatch.GrowableBuffer[dispatch.OddsChange],
	markets *dispatch.GrowableBuffer[dispatch.MarketEvent],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *OddsWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultWriterConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultWriterConfig().FlushInterval
	}

	return &OddsWriter{
		cfg:        cfg,
		logger:     logger,
		odds:       odds,
		markets:    markets,
		db:         db,
		oddsBatch:  make([]oddsRow, 0, cfg.BatchSize),
		eventBatch: make([]marketEventRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming messages and writing to the database.
func (w *OddsWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("odds journal started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down, flushing whatever is buffered.
func (w *OddsWriter) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("odds journal stopped")
	case <-ctx.Done():
		w.logger.Warn("odds journal stop timed out")
	}

	w.flush()
	return nil
}

// SetInstruments wires the telemetry sink. Must be called before Start.
func (w *OddsWriter) SetInstruments(in Instruments) {
	w.instruments = in
}

// Stats returns current metrics.
func (w *OddsWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop drains both buffers and accumulates batches.
func (w *OddsWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		busy := false
		if oc, ok := w.odds.TryReceive(); ok {
			w.handleOddsChange(oc)
			busy = true
		}
		if ev, ok := w.markets.TryReceive(); ok {
			w.handleMarketEvent(ev)
			busy = true
		}

		if !busy {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
}

// flushLoop periodically flushes the batches.
func (w *OddsWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

func (w *OddsWriter) handleOddsChange(oc dispatch.OddsChange) {
	rows := transformOddsChange(oc)

	w.batchMu.Lock()
	w.oddsBatch = append(w.oddsBatch, rows...)
	shouldFlush := len(w.oddsBatch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

func (w *OddsWriter) handleMarketEvent(ev dispatch.MarketEvent) {
	rows := transformMarketEvent(ev)

	w.batchMu.Lock()
	w.eventBatch = append(w.eventBatch, rows...)
	shouldFlush := len(w.eventBatch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transformOddsChange flattens one odds change into one row per
// outcome. Markets without outcomes still produce a status row.
func transformOddsChange(oc dispatch.OddsChange) []oddsRow {
	var sentAt int64
	if !oc.SentAt.IsZero() {
		sentAt = oc.SentAt.UnixMicro()
	}

	rows := make([]oddsRow, 0, len(oc.Markets))
	for _, m := range oc.Markets {
		base := oddsRow{
			EventID:      oc.EventID.String(),
			Producer:     oc.Producer,
			MarketID:     m.ID,
			Specifiers:   m.Specifiers,
			MarketStatus: m.Status,
			SentAt:       sentAt,
			ReceivedAt:   oc.ReceivedAt.UnixMicro(),
		}

		if len(m.Outcomes) == 0 {
			row := base
			row.ID = uuid.NewString()
			rows = append(rows, row)
			continue
		}
		for _, o := range m.Outcomes {
			row := base
			row.ID = uuid.NewString()
			row.OutcomeID = o.ID
			row.Odds = o.Odds
			row.Active = o.Active
			rows = append(rows, row)
		}
	}
	return rows
}

// transformMarketEvent flattens one market event. Settlements produce a
// row per settled outcome; stops produce a single row with no market.
func transformMarketEvent(ev dispatch.MarketEvent) []marketEventRow {
	var sentAt int64
	if !ev.SentAt.IsZero() {
		sentAt = ev.SentAt.UnixMicro()
	}

	base := marketEventRow{
		Kind:       string(ev.Kind),
		EventID:    ev.EventID.String(),
		Producer:   ev.Producer,
		Certainty:  ev.Certainty,
		SentAt:     sentAt,
		ReceivedAt: ev.ReceivedAt.UnixMicro(),
	}

	switch ev.Kind {
	case dispatch.KindBetStop:
		row := base
		row.ID = uuid.NewString()
		return []marketEventRow{row}

	case dispatch.KindBetCancel, dispatch.KindRollbackBetCancel:
		rows := make([]marketEventRow, 0, len(ev.Markets))
		for _, m := range ev.Markets {
			row := base
			row.ID = uuid.NewString()
			row.MarketID = m.ID
			row.Specifiers = m.Specifiers
			rows = append(rows, row)
		}
		return rows

	case dispatch.KindBetSettlement:
		var rows []marketEventRow
		for _, m := range ev.Settled {
			for _, o := range m.Outcomes {
				row := base
				row.ID = uuid.NewString()
				row.MarketID = m.ID
				row.Specifiers = m.Specifiers
				row.OutcomeID = o.ID
				row.Result = o.Result
				rows = append(rows, row)
			}
		}
		return rows
	}

	return nil
}

// flush writes both batches to the database.
func (w *OddsWriter) flush() {
	w.batchMu.Lock()
	oddsBatch := w.oddsBatch
	eventBatch := w.eventBatch
	w.oddsBatch = make([]oddsRow, 0, w.cfg.BatchSize)
	w.eventBatch = make([]marketEventRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if len(oddsBatch) == 0 && len(eventBatch) == 0 {
		return
	}

	start := time.Now()

	if len(oddsBatch) > 0 {
		if err := w.batchInsertOdds(oddsBatch); err != nil {
			w.logger.Error("odds batch insert failed", "error", err, "count", len(oddsBatch))
			w.batchMu.Lock()
			w.metrics.OddsErrors++
			w.batchMu.Unlock()
			if w.instruments != nil {
				w.instruments.ObserveJournalFlushError()
			}
		} else {
			w.batchMu.Lock()
			w.metrics.OddsInserts += int64(len(oddsBatch))
			w.batchMu.Unlock()
			if w.instruments != nil {
				w.instruments.ObserveJournalRows("odds_changes", len(oddsBatch))
			}
		}
	}

	if len(eventBatch) > 0 {
		if err := w.batchInsertEvents(eventBatch); err != nil {
			w.logger.Error("market event batch insert failed", "error", err, "count", len(eventBatch))
			w.batchMu.Lock()
			w.metrics.EventErrors++
			w.batchMu.Unlock()
			if w.instruments != nil {
				w.instruments.ObserveJournalFlushError()
			}
		} else {
			w.batchMu.Lock()
			w.metrics.EventInserts += int64(len(eventBatch))
			w.batchMu.Unlock()
			if w.instruments != nil {
				w.instruments.ObserveJournalRows("market_events", len(eventBatch))
			}
		}
	}

	if w.instruments != nil {
		w.instruments.ObserveJournalFlush(len(oddsBatch) + len(eventBatch))
	}

	w.batchMu.Lock()
	w.metrics.Flushes++
	w.metrics.LastFlushTime = time.Now()
	w.batchMu.Unlock()

	w.logger.Debug("journal flushed",
		"odds_rows", len(oddsBatch),
		"event_rows", len(eventBatch),
		"duration", time.Since(start),
	)
}

// batchInsertOdds inserts odds rows in one round trip.
func (w *OddsWriter) batchInsertOdds(rows []oddsRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO odds_changes (id, event_id, producer, market_id, specifiers, market_status, outcome_id, odds, active, sent_at, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, r.ID, r.EventID, r.Producer, r.MarketID, r.Specifiers, r.MarketStatus, r.OutcomeID, r.Odds, r.Active, r.SentAt, r.ReceivedAt)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// batchInsertEvents inserts market event rows in one round trip.
func (w *OddsWriter) batchInsertEvents(rows []marketEventRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO market_events (id, kind, event_id, producer, market_id, specifiers, outcome_id, result, certainty, sent_at, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, r.ID, r.Kind, r.EventID, r.Producer, r.MarketID, r.Specifiers, r.OutcomeID, r.Result, r.Certainty, r.SentAt, r.ReceivedAt)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
