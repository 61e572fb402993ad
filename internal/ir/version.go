package ir

// Version constants for journal payloads and the engine.
const (
	// PayloadVersion is the schema version of canonical journal payloads.
	PayloadVersion = "1"

	// EngineVersion is the mutable command buffer engine version.
	EngineVersion = "0.1.0"
)
