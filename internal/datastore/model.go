package datastore

import "time"

// Diagnosis types.
const (
	TypeEngineSound   = "engine_sound"
	TypeDashboardScan = "dashboard_scan"
)

// Diagnosis statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DiagnosticRecord is one persisted diagnosis. Result holds the encoded
// response exactly as it was returned to the caller.
type DiagnosticRecord struct {
	ID            string    `gorm:"primaryKey;size:36"`
	UserID        string    `gorm:"size:128;not null;index:idx_records_user_created,priority:1"`
	DiagnosisType string    `gorm:"size:32;not null"`
	Status        string    `gorm:"size:16;not null"`
	UrgencyLevel  string    `gorm:"size:16"`
	Confidence    float64   `gorm:"not null;default:0"`
	ArchivePath   string    `gorm:"size:512"`
	Result        string    `gorm:"type:mediumtext"`
	CreatedAt     time.Time `gorm:"index:idx_records_user_created,priority:2"`
}

// TableName pins the table name independent of gorm's pluralisation.
func (DiagnosticRecord) TableName() string {
	return "diagnostic_records"
}
