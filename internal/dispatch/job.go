package dispatch

import (
	"fmt"
	"unicode/utf8"

	"github.com/dennisimoo/DiscordMessageMigrator/internal/export"
	"github.com/dennisimoo/DiscordMessageMigrator/internal/platform"
)

// Op is the kind of outbound operation a Job performs.
type Op int

const (
	OpSend Op = iota
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpSend:
		return "send"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Job is one operation attempt against a remote channel. Seq is the job's
// stable position in the batch; Attempts and LastErr are owned exclusively
// by the dispatcher for the run's duration.
type Job struct {
	Seq      int
	Op       Op
	Payload  string // outbound text, for OpSend
	RemoteID string // target message ID, for OpDelete
	Attempts int
	LastErr  error
}

// SendJobs derives one send job per record, in record order. The payload
// is the original replay format, `[timestamp] author: content`, truncated
// to maxLen. Any reverse or limit is applied to records before this call;
// jobs are never reordered after batch build.
func SendJobs(records []export.Record, maxLen int) []Job {
	jobs := make([]Job, len(records))
	for i, r := range records {
		payload := fmt.Sprintf("[%s] %s: %s", timestampLabel(r), r.DisplayAuthor(), r.Content)
		// Platform limits are character ceilings, so cut on rune
		// boundaries rather than bytes.
		if maxLen > 0 && utf8.RuneCountInString(payload) > maxLen {
			payload = string([]rune(payload)[:maxLen])
		}
		jobs[i] = Job{Seq: i, Op: OpSend, Payload: payload}
	}
	return jobs
}

// DeleteJobs derives one delete job per listed message, in listing order.
func DeleteJobs(messages []platform.Message) []Job {
	jobs := make([]Job, len(messages))
	for i, m := range messages {
		jobs[i] = Job{Seq: i, Op: OpDelete, RemoteID: m.ID}
	}
	return jobs
}

func timestampLabel(r export.Record) string {
	if r.Timestamp.IsZero() {
		return "unknown time"
	}
	return r.Timestamp.Format("2006-01-02 15:04:05")
}
