package model

import (
	"time"

	"gorm.io/datatypes"
)

type OpenDotaResponse struct {
	Path      string         `gorm:"type:varchar(255);primaryKey"`
	Body      datatypes.JSON `gorm:"type:jsonb;not null"`
	FetchedAt time.Time      `gorm:"default:now();not null"`
}

func (OpenDotaResponse) TableName() string {
	return "opendota_responses"
}
