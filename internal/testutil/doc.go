// Package testutil provides metadata providers and fixtures for tests.
//
// GatedProvider wraps any metadata.Provider and lets a test hold lookups
// in flight, inject failures and count calls. This makes debounce,
// cancellation and stale-result behaviour of remote validators
// deterministic without sleeping.
package testutil
