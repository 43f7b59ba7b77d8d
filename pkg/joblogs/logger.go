package joblogs

import (
	"context"
	"runtime/debug"

	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

const maxDataValueLen = 1024

// JobLogger writes each entry to the process log and to the job's log table
// so it can be read back through the API.
type JobLogger struct {
	jobID   int
	service *Service
	log     logger.Logger
	ctx     context.Context
}

func (svc *Service) NewJobLogger(ctx context.Context, jobID int, log logger.Logger) *JobLogger {
	return &JobLogger{
		jobID:   jobID,
		service: svc,
		log:     log.Data(logger.Data{"job_id": jobID}),
		ctx:     ctx,
	}
}

func (l *JobLogger) Info(msg string, data logger.Data) {
	l.log.Info(msg, data)
	l.persist(models.JobLogLevelInfo, msg, data, nil)
}

func (l *JobLogger) Warn(msg string, data logger.Data) {
	l.log.Warn(msg, data)
	l.persist(models.JobLogLevelWarn, msg, data, nil)
}

// Error logs err along with the current stack.
func (l *JobLogger) Error(msg string, err error, data logger.Data) {
	l.log.Err(err).Error(msg, data)
	stack := string(debug.Stack())
	l.persist(models.JobLogLevelError, msg, withError(data, err), &stack)
}

// Fatal is used for recovered panics.
func (l *JobLogger) Fatal(msg string, err error, data logger.Data) {
	data = withError(data, err)
	l.log.Error(msg, data)
	stack := string(debug.Stack())
	l.persist(models.JobLogLevelFatal, msg, data, &stack)
}

func withError(data logger.Data, err error) logger.Data {
	if err == nil {
		return data
	}
	out := logger.Data{}
	for k, v := range data {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

func (l *JobLogger) persist(level, msg string, data logger.Data, stackTrace *string) {
	var source *string
	if s, ok := data["source"].(string); ok && s != "" {
		source = &s
	}

	var dataStr *string
	truncated := logger.Data{}
	for k, v := range data {
		if k == "source" {
			continue
		}
		if s, ok := v.(string); ok && len(s) > maxDataValueLen {
			v = truncateMiddle(s, maxDataValueLen)
		}
		truncated[k] = v
	}
	if len(truncated) > 0 {
		b, err := json.Marshal(truncated)
		if err == nil {
			s := string(b)
			dataStr = &s
		}
	}

	err := l.service.CreateJobLog(l.ctx, &models.JobLog{
		JobID:      l.jobID,
		Level:      level,
		Message:    msg,
		Source:     source,
		Data:       dataStr,
		StackTrace: stackTrace,
	})
	if err != nil {
		l.log.Err(err).Warn("persist job log error")
	}
}

func truncateMiddle(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	half := (maxLen - 5) / 2
	return s[:half] + " ... " + s[len(s)-half:]
}
