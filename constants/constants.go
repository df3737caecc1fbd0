package constants

import "time"

// Application-wide constants
const (
	// Store configuration
	DefaultDatabaseName = "bank"
	StoreOpenTimeout    = 5 * time.Second
	CommandTimeout      = 5 * time.Second

	// Telemetry configuration
	DefaultLogBufferSize = 1000
	DefaultStatsInterval = 2 * time.Second

	// TUI configuration
	TUIRefreshInterval = time.Second
	TUILogLines        = 100
)

