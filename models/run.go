package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one scheduled pipeline execution, recorded in the operational store.
type Run struct {
	ID            int64      `json:"id" db:"id"`
	UUID          string     `json:"run_uuid" db:"run_uuid"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        RunStatus  `json:"status" db:"status"`
	ListingsFound int        `json:"listings_found" db:"listings_found"`
	ListingsNew   int        `json:"listings_new" db:"listings_new"`
	ErrorsCount   int        `json:"errors_count" db:"errors_count"`
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Pipeline stages, used to attribute persisted log lines.
const (
	StageCrawl        = "crawl"
	StageAvailability = "availability"
	StageEnrichment   = "enrichment"
	StageTravelTimes  = "travel_times"
)

// RunLog is a persisted log entry attributed to a run and stage.
type RunLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	Stage     string    `json:"stage" db:"stage"`
}
