package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	JobLogLevelInfo  = "info"
	JobLogLevelWarn  = "warn"
	JobLogLevelError = "error"
	JobLogLevelFatal = "fatal"
)

type JobLog struct {
	bun.BaseModel `bun:"table:job_logs,alias:jl"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	JobID     int       `bun:",nullzero" json:"job_id"`
	Level     string    `bun:",nullzero" json:"level"`
	Message   string    `bun:",nullzero" json:"message"`
	// Source is the scraper or parser the entry came from, when there is one.
	Source     *string `json:"source,omitempty"`
	Data       *string `json:"data,omitempty"`
	StackTrace *string `json:"stack_trace,omitempty"`
}
