package storage

import "time"

// sessionStateModel is the GORM row backing session.State. One row per
// session id; saves replace the whole row so readers never observe a
// partial update.
type sessionStateModel struct {
	SessionID       string `gorm:"primaryKey;column:session_id"`
	Module          string `gorm:"column:module;not null"`
	Phase           string `gorm:"column:phase;not null"`
	Step            int    `gorm:"column:step;not null"`
	ActiveComponent string `gorm:"column:active_component"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	IsComplete      bool   `gorm:"column:is_complete;not null;default:0"`
	LastCommitSha   string `gorm:"column:last_commit_sha"`
	PlanFileHash    string `gorm:"column:plan_file_hash"`
}

func (sessionStateModel) TableName() string { return "session_states" }

// sessionMetricsModel is the GORM row backing session.Metrics.
type sessionMetricsModel struct {
	SessionID       string `gorm:"primaryKey;column:session_id"`
	InputTokens     int64  `gorm:"column:input_tokens;not null;default:0"`
	OutputTokens    int64  `gorm:"column:output_tokens;not null;default:0"`
	PremiumRequests int    `gorm:"column:premium_requests;not null;default:0"`
	Iterations      int    `gorm:"column:iterations;not null;default:0"`
	UpdatedAt       time.Time
}

func (sessionMetricsModel) TableName() string { return "session_metrics" }

// latestPointerModel is the single-row latest-session pointer. The row
// id is always 1; the pointer exists only through the Store interface,
// never as process-global state.
type latestPointerModel struct {
	ID        int    `gorm:"primaryKey;column:id"`
	SessionID string `gorm:"column:session_id;not null"`
	UpdatedAt time.Time
}

func (latestPointerModel) TableName() string { return "latest_pointer" }

// quarantinedSessionModel preserves the raw payload of a corrupt
// session for forensic recovery.
type quarantinedSessionModel struct {
	SessionID     string `gorm:"primaryKey;column:session_id"`
	Reason        string `gorm:"column:reason;not null"`
	Payload       string `gorm:"column:payload"`
	QuarantinedAt time.Time
}

func (quarantinedSessionModel) TableName() string { return "quarantined_sessions" }
