package model

import "time"

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;size:32;not null"`
	Password  string `gorm:"size:255;not null"`
	Email     string `gorm:"uniqueIndex;size:64;not null"`
	Name      string `gorm:"size:64"`
	Bio       string `gorm:"type:text"`
	AvatarURL string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
