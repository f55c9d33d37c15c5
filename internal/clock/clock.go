// Package clock wraps the wall clock so that it can be stubbed in tests.
package clock

import "time"

// NowFunc returns the current time. Override in tests for determinism.
//
//nolint:gochecknoglobals
var NowFunc = time.Now

// Now is a thin wrapper around [NowFunc].
func Now() time.Time { return NowFunc() }
