package market

import (
	"fmt"
	"sort"
	"sync"
)

// CN is China A-shares: a morning session with a lunch break before the
// afternoon session. Session boundaries are exchange local time.
var CN = Market{
	ID: "CN",
	Sessions: []Session{
		{Start: MustTime(9, 30, 0, 0), End: MustTime(11, 30, 0, 0)},
		{Start: MustTime(13, 0, 0, 0), End: MustTime(15, 0, 0, 0)},
	},
	CloseTolerance: DefaultCloseTolerance,
}

// CRYPTO trades around the clock: one session spanning the whole day.
var CRYPTO = Market{
	ID: "CRYPTO",
	Sessions: []Session{
		{Start: MustTime(0, 0, 0, 0), End: MustTime(23, 59, 59, 999)},
	},
	CloseTolerance: DefaultCloseTolerance,
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Market{
		CN.ID:     CN,
		CRYPTO.ID: CRYPTO,
	}
)

// Get looks up a market by identifier. Unknown identifiers fail with
// ErrUnsupportedMarket rather than defaulting.
func Get(id string) (Market, error) {
	registryMu.RLock()
	m, ok := registry[id]
	registryMu.RUnlock()
	if !ok {
		return Market{}, fmt.Errorf("%w: %s", ErrUnsupportedMarket, id)
	}
	return m, nil
}

// Register adds or replaces a market definition. Intended for startup wiring
// of config-defined markets; concurrent use with Get is safe, but callers
// must not register while a pipeline run is in flight.
func Register(m Market) {
	registryMu.Lock()
	registry[m.ID] = m
	registryMu.Unlock()
}

// IDs returns the registered market identifiers in sorted order.
func IDs() []string {
	registryMu.RLock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	registryMu.RUnlock()
	sort.Strings(ids)
	return ids
}
