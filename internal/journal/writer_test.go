package journal

import (
	"testing"
	"time"

	"github.com/oddsfeed/sdk/internal/dispatch"
	"github.com/oddsfeed/sdk/internal/urn"
)

func TestTransformOddsChange(t *testing.T) {
	sentAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	receivedAt := sentAt.Add(50 * time.Millisecond)

	oc := dispatch.OddsChange{
		Producer: 1,
		EventID:  urn.MustParse("sr:match:1234"),
		Markets: []dispatch.MarketUpdate{
			{
				ID:         47,
				Specifiers: "score=0:1",
				Status:     1,
				Outcomes: []dispatch.OutcomeOdds{
					{ID: "1714", Odds: 1.85, Active: true},
					{ID: "1715", Odds: 2.05, Active: false},
				},
			},
			{ID: 48, Status: -1}, // Suspended, no outcomes.
		},
		SentAt:     sentAt,
		ReceivedAt: receivedAt,
	}

	rows := transformOddsChange(oc)

	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].EventID != "sr:match:1234" || rows[0].MarketID != 47 {
		t.Errorf("rows[0] scope = %s/%d", rows[0].EventID, rows[0].MarketID)
	}
	if rows[0].Odds != 1.85 || !rows[0].Active {
		t.Errorf("rows[0] odds = %v/%v", rows[0].Odds, rows[0].Active)
	}
	if rows[1].Active {
		t.Error("rows[1].Active = true, want false")
	}
	if rows[2].MarketID != 48 || rows[2].OutcomeID != "" {
		t.Errorf("rows[2] = %+v, want status-only row for market 48", rows[2])
	}
	if rows[0].SentAt != sentAt.UnixMicro() {
		t.Errorf("SentAt = %d, want %d", rows[0].SentAt, sentAt.UnixMicro())
	}
	if rows[0].ReceivedAt != receivedAt.UnixMicro() {
		t.Errorf("ReceivedAt = %d, want %d", rows[0].ReceivedAt, receivedAt.UnixMicro())
	}
	if rows[0].ID == rows[1].ID || rows[0].ID == "" {
		t.Error("row ids must be unique and non-empty")
	}
}

func TestTransformMarketEvent_Settlement(t *testing.T) {
	ev := dispatch.MarketEvent{
		Kind:      dispatch.KindBetSettlement,
		Producer:  1,
		EventID:   urn.MustParse("sr:match:1234"),
		Certainty: 2,
		Settled: []dispatch.SettledMarket{
			{
				ID: 47,
				Outcomes: []dispatch.SettledOutcome{
					{ID: "1714", Result: 1},
					{ID: "1715", Result: 0},
				},
			},
		},
		ReceivedAt: time.Now(),
	}

	rows := transformMarketEvent(ev)

	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Kind != "bet_settlement" || rows[0].Certainty != 2 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[0].OutcomeID != "1714" || rows[0].Result != 1 {
		t.Errorf("rows[0] outcome = %s/%d", rows[0].OutcomeID, rows[0].Result)
	}
	if rows[1].Result != 0 {
		t.Errorf("rows[1].Result = %d, want 0", rows[1].Result)
	}
}

func TestTransformMarketEvent_CancelAndStop(t *testing.T) {
	cancel := dispatch.MarketEvent{
		Kind:    dispatch.KindBetCancel,
		EventID: urn.MustParse("sr:match:1"),
		Markets: []dispatch.MarketRef{
			{ID: 47, Specifiers: "score=0:1"},
			{ID: 48},
		},
		ReceivedAt: time.Now(),
	}
	rows := transformMarketEvent(cancel)
	if len(rows) != 2 {
		t.Fatalf("cancel rows = %d, want 2", len(rows))
	}
	if rows[0].MarketID != 47 || rows[0].Specifiers != "score=0:1" {
		t.Errorf("rows[0] = %+v", rows[0])
	}

	stop := dispatch.MarketEvent{
		Kind:       dispatch.KindBetStop,
		EventID:    urn.MustParse("sr:match:1"),
		ReceivedAt: time.Now(),
	}
	rows = transformMarketEvent(stop)
	if len(rows) != 1 {
		t.Fatalf("stop rows = %d, want 1", len(rows))
	}
	if rows[0].Kind != "bet_stop" {
		t.Errorf("Kind = %q", rows[0].Kind)
	}
}

func TestHandleOddsChange_Accumulates(t *testing.T) {
	odds := dispatch.NewGrowableBuffer[dispatch.OddsChange](10)
	markets := dispatch.NewGrowableBuffer[dispatch.MarketEvent](10)
	w := NewOddsWriter(DefaultWriterConfig(), odds, markets, nil, nil)

	w.handleOddsChange(dispatch.OddsChange{
		EventID: urn.MustParse("sr:match:1"),
		Markets: []dispatch.MarketUpdate{
			{ID: 47, Outcomes: []dispatch.OutcomeOdds{{ID: "1714", Odds: 1.5, Active: true}}},
		},
		ReceivedAt: time.Now(),
	})

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	if len(w.oddsBatch) != 1 {
		t.Errorf("len(oddsBatch) = %d, want 1", len(w.oddsBatch))
	}
}
