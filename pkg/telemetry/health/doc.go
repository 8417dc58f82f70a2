// Package health serves the liveness, readiness and version endpoints.
//
// Readiness runs every registered check concurrently, each under its own
// timeout. The service registers a store ping and, when a rules file is
// configured, a check that the last reload succeeded.
package health
