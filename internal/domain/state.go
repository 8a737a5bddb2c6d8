package domain

import "time"

// CurrentSchemaVersion is the version the one-time legacy migration upgrades
// to. The migration is a silent no-op when the stored version is already at
// or past it.
const CurrentSchemaVersion = 2

// PipelineState is the single persisted record of pipeline-global flags,
// replacing ad hoc preference-store entries.
type PipelineState struct {
	LastDecayRun  *time.Time `json:"last_decay_run,omitempty"`
	SchemaVersion int        `json:"schema_version"`
}
