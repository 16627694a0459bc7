package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent is the append-only audit log of payment-processor deliveries.
// A row is written before its handler runs and flipped to processed after the
// handler returns, so every received event stays visible even if handling
// crashes half way. EventID carries the processor's event id and doubles as
// the deduplication key for redelivered events.
type WebhookEvent struct {
	gorm.Model
	EventID         string         `json:"event_id" gorm:"uniqueIndex;type:varchar(191);not null"`
	EventType       string         `json:"event_type" gorm:"type:varchar(100);index;not null"`
	Payload         datatypes.JSON `json:"payload"`
	Processed       bool           `json:"processed" gorm:"default:false"`
	ProcessingError string         `json:"processing_error" gorm:"type:text"`
}
