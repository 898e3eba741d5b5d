package main

// Default limits for CLI commands.
const (
	DefaultListLimit = 50
	MaxInputBytes    = 1 << 20
)

// Recognition modes accepted by --mode.
var validModes = []string{"patterns", "model"}
