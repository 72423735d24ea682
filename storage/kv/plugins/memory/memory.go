package memory

import (
	"github.com/jrife/mergekv/storage/kv"
)

const (
	// DriverName is the name of the memory plugin
	DriverName = "memory"
)

var _ kv.Plugin = (*Plugin)(nil)

// Plugin is a kv plugin whose stores live in memory
// and vanish when closed. It takes no options.
type Plugin struct {
}

// Name implements kv.Plugin.Name
func (plugin *Plugin) Name() string {
	return DriverName
}

// NewStore implements kv.Plugin.NewStore
func (plugin *Plugin) NewStore(options kv.PluginOptions) (kv.Store, error) {
	return kv.NewFakeStore(), nil
}

// NewTempStore implements kv.Plugin.NewTempStore
func (plugin *Plugin) NewTempStore() (kv.Store, error) {
	return kv.NewFakeStore(), nil
}
