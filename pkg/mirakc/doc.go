// Package mirakc provides a Go client for the mirakc tuner server REST API.
//
// mirakc exposes the programs, services and tuners it knows about as JSON
// arrays. This package covers the read-only endpoints a program guide needs.
//
// # Basic Usage
//
//	client := mirakc.NewClient("http://tuner.local:40772")
//
//	// All programs currently in the EPG cache
//	programs, err := client.Programs(ctx)
//
//	// All services (channels)
//	services, err := client.Services(ctx)
//
//	// Server version
//	version, err := client.Version(ctx)
//
// # Stream URLs
//
// StreamURL builds the per-service stream endpoint with its scheme replaced by
// a player protocol, so that a browser hands the URL to an external player:
//
//	url := client.StreamURL(service, "vlc")
//	// vlc://tuner.local:40772/api/services/3273601024/stream
//
// # API Endpoints
//
//   - /api/programs: List programs
//   - /api/services: List services
//   - /api/tuners: Tuner states
//   - /api/version: Server version
//   - /api/services/{id}/stream: Live stream of a service
package mirakc
