package embedded

import (
	_ "embed"
)

//go:embed config.toml
var defaultConfig []byte

//go:embed demo.at
var demoScript []byte

// DefaultConfig returns the embedded default configuration file.
func DefaultConfig() []byte {
	return defaultConfig
}

// DemoScript returns the embedded demo command script.
func DemoScript() []byte {
	return demoScript
}
