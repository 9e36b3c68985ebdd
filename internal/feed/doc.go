// Package feed maintains the websocket connection to the odds feed and
// delivers raw messages downstream.
//
// The Client wraps one websocket connection with ping/pong liveness
// monitoring. The Consumer owns the client lifecycle: it reconnects
// with backoff after a drop and publishes connection up/down events so
// the recovery layer can react to transport gaps.
package feed
