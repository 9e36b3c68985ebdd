// Package dispatch is the single entry point for inbound feed
// messages.
//
// One goroutine parses each frame's envelope and routing key, refreshes
// producer liveness, and routes the payload: system messages go to the
// recovery manager, fixture changes invalidate the sport-event cache,
// status-bearing messages merge into the status cache, and market-level
// messages (odds changes, bet stop/cancel/settlement) are translated
// into typed values and queued for downstream consumers. Processing on
// a single goroutine preserves per-event arrival order.
package dispatch
