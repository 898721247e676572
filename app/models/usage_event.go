package models

import "time"

// UsageEvent is one admitted, costed operation. Written by the admission
// gate after a successful deduct and consumed read-only by the usage
// reporter; it is never part of the balance arithmetic.
type UsageEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_usage_events_user_created,priority:1" json:"user_id"`
	Operation string    `gorm:"type:varchar(50);not null;index" json:"operation"`
	Cost      int64     `gorm:"not null" json:"cost"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_usage_events_user_created,priority:2" json:"created_at"`
}
