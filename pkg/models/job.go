package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobTypeWatchlistCheck = "watchlist_check"
	JobTypeEnrich         = "enrich"
	JobTypeImport         = "import"
)

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID         int         `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Type       string      `bun:",nullzero" json:"type"`
	Status     string      `bun:",nullzero" json:"status"`
	Data       string      `bun:",nullzero" json:"-"`
	DataParsed interface{} `bun:"-" json:"data"`
	Progress   int         `json:"progress"`
	ProcessID  *string     `json:"process_id,omitempty"`
	UserID     *int        `json:"user_id,omitempty"`
}

func (job *Job) UnmarshalData() error {
	switch job.Type {
	case JobTypeWatchlistCheck:
		job.DataParsed = &JobWatchlistCheckData{}
	case JobTypeEnrich:
		job.DataParsed = &JobEnrichData{}
	case JobTypeImport:
		job.DataParsed = &JobImportData{}
	default:
		return errors.Errorf("unknown job type %q", job.Type)
	}

	if job.Data == "" {
		return nil
	}

	err := json.Unmarshal([]byte(job.Data), job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// JobWatchlistCheckData checks a single watchlist when WatchlistID is set, otherwise every active one.
type JobWatchlistCheckData struct {
	WatchlistID *int `json:"watchlist_id,omitempty"`
}

type JobEnrichData struct {
	BookID int `json:"book_id"`
}

type JobImportData struct {
	Path string `json:"path"`
}
