package ir

// Version constants for the snapshot schema and the builder.
const (
	// IRVersion is the snapshot schema version.
	IRVersion = "1"

	// BuilderVersion is the procfg builder version.
	BuilderVersion = "0.1.0"
)
