package model

import "time"

// GeneratedDocument is one trade-confirmation export record, produced per
// consolidated trade once its import reaches CONSOLIDATED. Deleted together
// with the owning import.
type GeneratedDocument struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"size:255;not null" json:"filename"`
	Content   string    `gorm:"type:text" json:"content,omitempty"`
	ImportID  uint      `gorm:"not null;index" json:"import_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (GeneratedDocument) TableName() string {
	return "generated_documents"
}
