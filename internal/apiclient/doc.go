// Package apiclient provides the client for the reference-data REST API.
//
// Every content endpoint is locale-parameterized; the same resource is
// fetched once per required language:
//
//	/v1/sports/{locale}/sports.json
//	/v1/sports/{locale}/tournaments.json
//	/v1/sports/{locale}/tournaments/{id}/info.json
//	/v1/sports/{locale}/sport_events/{id}/summary.json
//	/v1/sports/{locale}/sport_events/{id}/fixture.json
//	/v1/sports/{locale}/competitors/{id}/profile.json
//	/v1/descriptions/{locale}/markets.json
//	/v1/descriptions/{locale}/variants.json
//
// Recovery requests are issued per producer:
//
//	POST /v1/{producer}/recovery/initiate_request
package apiclient
