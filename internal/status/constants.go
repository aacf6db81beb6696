// internal/status/constants.go
package status

// Status surface constants.
// These values are part of the external status contract and MUST NOT be configurable.

// ---- SYSTEM STATUS ----

// SystemInitializing: no annotated frame produced yet.
const SystemInitializing = "initializing"

// SystemActive: detection is running and producing annotated frames.
const SystemActive = "active"

// SystemDegraded: the model is unavailable; only raw frames are served.
const SystemDegraded = "degraded"

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a connected PLC link.
const HealthOK uint16 = 1

// HealthError represents a failed connect attempt.
const HealthError uint16 = 2

// HealthStale represents a link that dropped after having been up.
const HealthStale uint16 = 3

// HealthConnecting represents an attempt in progress.
const HealthConnecting uint16 = 4
