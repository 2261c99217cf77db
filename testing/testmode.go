// Package testing switches the binaries into test mode when imported by a
// test package, so importing main packages has no runtime side effects.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		if os.Getenv("HOTEL_TIMEZONE") == "" {
			_ = os.Setenv("HOTEL_TIMEZONE", "UTC")
		}
	})
}

func init() {
	ensureTestMode()
}
