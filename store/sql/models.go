package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type activityEntryRecord struct {
	bun.BaseModel `bun:"table:bridge_activity_entries,alias:bae"`

	ID         string         `bun:"id,pk"`
	Action     string         `bun:"action,notnull"`
	Status     string         `bun:"status,notnull"`
	Message    string         `bun:"message"`
	SessionUID int64          `bun:"session_uid"`
	DurationMS int64          `bun:"duration_ms"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
