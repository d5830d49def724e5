package domain

import "time"

// SyncOptions selects which fields a run may overwrite on existing products.
// Full implies every other flag and additionally allows creating variants on
// products that already exist remotely.
type SyncOptions struct {
	Full      bool `json:"full" mapstructure:"full"`
	Price     bool `json:"price" mapstructure:"price"`
	Inventory bool `json:"inventory" mapstructure:"inventory"`
	Details   bool `json:"details" mapstructure:"details"`
	Images    bool `json:"images" mapstructure:"images"`
}

// IsZero reports whether no flag is set
func (o SyncOptions) IsZero() bool {
	return !o.Full && !o.Price && !o.Inventory && !o.Details && !o.Images
}

// Normalize returns the options a run actually uses: an empty selection means a full sync.
func (o SyncOptions) Normalize() SyncOptions {
	if o.IsZero() {
		return SyncOptions{Full: true}
	}
	return o
}

func (o SyncOptions) SyncDetails() bool   { return o.Full || o.Details }
func (o SyncOptions) SyncImages() bool    { return o.Full || o.Images }
func (o SyncOptions) SyncPrice() bool     { return o.Full || o.Price }
func (o SyncOptions) SyncInventory() bool { return o.Full || o.Inventory }

// RunStatus is the terminal state of a sync run
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// SyncSummary is the immutable outcome of one run.
type SyncSummary struct {
	RunID           string      `json:"runId"`
	Status          RunStatus   `json:"status"`
	Options         SyncOptions `json:"options"`
	CreatedCount    int         `json:"createdCount"`
	UpdatedCount    int         `json:"updatedCount"`
	ErrorCount      int         `json:"errorCount"`
	// SkippedCount counts new variants left out because the run was not full
	SkippedCount    int         `json:"skippedCount"`
	DurationSeconds float64     `json:"durationSeconds"`
	StartedAt       time.Time   `json:"startedAt"`
	FinishedAt      time.Time   `json:"finishedAt"`
	Error           string      `json:"error,omitempty"`
}

// LogLevel classifies a log sink message
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelSuccess LogLevel = "success"
	LevelWarn    LogLevel = "warn"
	LevelError   LogLevel = "error"
)

// LogSink receives every notable sync event as a human-readable line.
type LogSink func(message string, level LogLevel)
