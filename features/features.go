// Package features controls deployment-wide behavior toggles.
package features

import (
	"fmt"
	"sync"
)

// List of features and their default value. PlainHexAuditSerials selects the
// bare-hex audit serial normalization used by the legacy TPS entry points
// instead of the 0x-prefixed form; the legacy system shipped both and
// deployments depend on one or the other.
var defaults = map[string]bool{
	"PlainHexAuditSerials": false,
}

var (
	mu       sync.RWMutex
	features = clone(defaults)
)

func clone(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Set accepts a map of feature names to whether they should be enabled or
// disabled, and returns an error if passed a feature name that it doesn't
// know.
func Set(featureSet map[string]bool) error {
	mu.Lock()
	defer mu.Unlock()
	for n, v := range featureSet {
		if _, present := features[n]; !present {
			return fmt.Errorf("feature '%s' doesn't exist", n)
		}
		features[n] = v
	}
	return nil
}

// Enabled returns true if the feature is enabled. It panics if passed a
// feature name that it doesn't know.
func Enabled(n string) bool {
	mu.RLock()
	defer mu.RUnlock()
	v, present := features[n]
	if !present {
		panic(fmt.Sprintf("feature '%s' doesn't exist", n))
	}
	return v
}

// Reset restores every feature to its default value. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	features = clone(defaults)
}
