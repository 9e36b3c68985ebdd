// Package producer tracks the liveness of upstream feed producers and
// drives the recovery protocol when one goes quiet.
//
// The registry is the single shared view of producer state, safe for
// concurrent reads with exclusive per-producer writes. The recovery
// manager owns every state transition: a producer with no alive signal
// for longer than its inactivity window goes Down, a Down producer gets
// a recovery request scoped to the time it was last known healthy, and
// a matching snapshot-complete message brings it back Up. A recovery
// attempt that outlives its execution window is abandoned and re-armed.
package producer
