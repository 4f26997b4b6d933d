package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusUploaded   Status = "uploaded"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusReady,
	StatusUploaded,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions is the closed set of legal status moves. Everything else
// is rejected at the store boundary as ErrConflict.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusReady, StatusFailed},
	StatusReady:      {StatusUploaded, StatusFailed},
	StatusFailed:     {StatusProcessing},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AssetKind names one persisted asset path slot on a job record.
type AssetKind string

const (
	AssetBackground AssetKind = "background"
	AssetAudio      AssetKind = "audio"
	AssetTimestamps AssetKind = "timestamps"
	AssetSubtitles  AssetKind = "subtitles"
	AssetFinal      AssetKind = "final"
)

// WorkUnit carries the immutable catalog data a new job is seeded from.
type WorkUnit struct {
	ID        string
	Book      string
	Chapter   int
	Verse     int
	Text      string
	WordCount int
}

// Job represents one generation attempt persisted in SQLite.
type Job struct {
	ID           int64
	WorkUnitID   string
	Book         string
	Chapter      int
	Verse        int
	Text         string
	WordCount    int
	Status       Status
	RetryCount   int
	ErrorMessage string

	BackgroundPath string
	AudioPath      string
	TimestampsPath string
	SubtitlePath   string
	FinalPath      string

	PublishedID  string
	PublishedURL string
	UploadedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reference renders the human-readable passage reference for the job.
func (j *Job) Reference() string {
	return fmt.Sprintf("%s %d:%d", j.Book, j.Chapter, j.Verse)
}

// AssetPath returns the persisted path for an asset kind, if set.
func (j *Job) AssetPath(kind AssetKind) string {
	switch kind {
	case AssetBackground:
		return j.BackgroundPath
	case AssetAudio:
		return j.AudioPath
	case AssetTimestamps:
		return j.TimestampsPath
	case AssetSubtitles:
		return j.SubtitlePath
	case AssetFinal:
		return j.FinalPath
	default:
		return ""
	}
}

// Mode selects the work-unit selection policy.
type Mode string

const (
	ModeRandom     Mode = "random"
	ModeSequential Mode = "sequential"
)

// ParseMode converts a string into a known Mode.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeRandom:
		return ModeRandom, true
	case ModeSequential:
		return ModeSequential, true
	default:
		return "", false
	}
}

// Cursor is the singleton selection-progress record. The coordinate fields
// are meaningful in sequential mode only, but switching modes never clears
// them: sequential selection resumes from the last saved position.
type Cursor struct {
	Mode      Mode
	Book      string
	Chapter   int
	Verse     int
	UpdatedAt time.Time
}

// HasPosition reports whether a sequential position has been recorded.
func (c Cursor) HasPosition() bool {
	return c.Book != ""
}

// DayCounters aggregates one calendar date's outcomes.
type DayCounters struct {
	Date      string
	Generated int
	Uploaded  int
	Errors    int
}

// ProcessingStats summarizes job counts for reporting.
type ProcessingStats struct {
	Total             int
	ByStatus          map[Status]int
	RetryableFailed   int
	PermanentlyFailed int
}
