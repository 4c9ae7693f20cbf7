package models

import "time"

type Machine struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Code       string `gorm:"uniqueIndex;not null" json:"code"`
	Name       string `gorm:"not null" json:"name"`
	WorkCenter string `json:"work_center"`
	IsActive   bool   `gorm:"default:true" json:"is_active"`

	// bumped whenever an operation is bound, so two concurrent starts on the
	// same machine conflict on the version check
	Version int `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
