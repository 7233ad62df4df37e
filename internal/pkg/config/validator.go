package config

import "fmt"

var validBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
	"redis":    true,
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend %q: must be memory, postgres or redis", c.Store.Backend)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.Log.Format)
	}
	return nil
}
