package store

import (
	"fmt"

	"github.com/hokan/hokan/internal/config"
)

// driverFactory builds a Store from config. Drivers register themselves in
// init so the selection stays open to new backends.
type driverFactory func(cfg config.StoreConfig) (Store, error)

var drivers = map[string]driverFactory{}

// Register makes a driver available under the given name. It panics on
// duplicate registration since that is always a programming error.
func Register(name string, factory driverFactory) {
	if _, dup := drivers[name]; dup {
		panic(fmt.Sprintf("store driver %q registered twice", name))
	}
	drivers[name] = factory
}

// Open builds the store named by cfg.Driver.
func Open(cfg config.StoreConfig) (Store, error) {
	factory, ok := drivers[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	return factory(cfg)
}
