package model

import (
	"time"

	"gorm.io/gorm"
)

// ImportStatus is the lifecycle state of a trade import. Transitions are
// strictly forward except consolidation, which may be re-entered from any
// post-IMPORTED state as a corrective action.
type ImportStatus string

const (
	StatusImported           ImportStatus = "IMPORTED"
	StatusConsolidated       ImportStatus = "CONSOLIDATED"
	StatusDocumentsGenerated ImportStatus = "DOCUMENTS_GENERATED"
	StatusPushed             ImportStatus = "PUSHED"
)

// ImportNameLayout is the auto-generated import name format (UTC minute).
const ImportNameLayout = "2006-01-02-15:04"

// TradeImport is one batch of trades moving through the lifecycle from
// ingestion to delivery. It exclusively owns its trades and generated
// documents; deleting an import deletes both child sets.
type TradeImport struct {
	ID                    uint                `gorm:"primaryKey" json:"id"`
	ImportName            string              `gorm:"size:100;not null;uniqueIndex;column:import_name" json:"import_name"`
	Status                ImportStatus        `gorm:"size:30;not null" json:"status"`
	ConsolidationCriteria *string             `gorm:"size:50" json:"consolidation_criteria,omitempty"`
	OriginalTradeCount    int                 `gorm:"not null" json:"original_trade_count"`
	CurrentTradeCount     int                 `gorm:"not null" json:"current_trade_count"`
	Trades                []Trade             `gorm:"foreignKey:ImportID" json:"trades,omitempty"`
	Documents             []GeneratedDocument `gorm:"foreignKey:ImportID" json:"documents,omitempty"`
	DocumentsGenerated    bool                `gorm:"not null;default:false" json:"documents_generated"`
	Pushed                bool                `gorm:"not null;default:false" json:"pushed"`
	CreatedAt             time.Time           `json:"created_at"`
	ConsolidatedAt        *time.Time          `json:"consolidated_at,omitempty"`
	DocumentsGeneratedAt  *time.Time          `json:"documents_generated_at,omitempty"`
	PushedAt              *time.Time          `json:"pushed_at,omitempty"`
}

func (TradeImport) TableName() string {
	return "trade_imports"
}

// BeforeCreate fills the defaults the store expects: UTC creation time, a
// minute-resolution import name, and the initial IMPORTED status.
func (ti *TradeImport) BeforeCreate(_ *gorm.DB) error {
	if ti.CreatedAt.IsZero() {
		ti.CreatedAt = time.Now().UTC()
	}
	if ti.ImportName == "" {
		ti.ImportName = ti.CreatedAt.UTC().Format(ImportNameLayout)
	}
	if ti.Status == "" {
		ti.Status = StatusImported
	}
	return nil
}
