package model

import (
	"time"

	"github.com/google/uuid"
)

// UserCommentModel is the GORM-specific struct for the 'user_comments' table.
type UserCommentModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID     *uuid.UUID `gorm:"type:uuid;index"`
	Email      string     `gorm:"type:varchar(255)"`
	Subject    string     `gorm:"type:varchar(255)"`
	SendTo     string     `gorm:"type:varchar(255)"`
	Body       string     `gorm:"type:text;not null"`
	RemoteAddr string     `gorm:"type:varchar(64)"`
	RemoteHost string     `gorm:"type:varchar(255)"`
	SiteName   string     `gorm:"type:varchar(255);index"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserCommentModel) TableName() string {
	return "user_comments"
}
