// Package datarouter is the single fetch façade between the caches and
// the REST API client.
//
// Every fetch is deduplicated per (endpoint, id, locale) with
// singleflight, then fanned out to every registered listener interested
// in a sub-object of the payload: a summary carries the event, its
// tournament (with sport and category), its competitors and its status,
// and each part is delivered to the matching cache.
package datarouter
