package model

import (
	"time"
)

// Meeting persists the result of a proxied meeting-provider call so joining
// never needs the provider API again.
type Meeting struct {
	UUIDBase
	CourseID      string    `gorm:"index;size:64" json:"courseId"`
	WeekID        string    `gorm:"size:64" json:"weekId,omitempty"`
	Topic         string    `gorm:"size:200;not null" json:"topic"`
	ProviderID    string    `gorm:"size:64;index" json:"providerId"` // meeting id at the provider
	JoinURL       string    `gorm:"size:500" json:"joinUrl"`
	Passcode      string    `gorm:"size:50" json:"passcode,omitempty"`
	StartTime     time.Time `json:"startTime"`
	DurationMin   int       `gorm:"default:0" json:"durationMin"`
	CreatedByID   uint      `gorm:"index" json:"createdById"`
}

func (Meeting) TableName() string {
	return "meetings"
}
