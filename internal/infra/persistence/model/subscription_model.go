package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionModel is the GORM-specific struct for the 'subscriptions' table.
// The spatial area is stored twice: as plain numeric columns owned by this
// model, and as a PostGIS geography column ('area', geometry 'box_geom')
// maintained by a database trigger off these columns. Queries go through the
// PostGIS columns; reads and writes here touch only the numeric ones.
type SubscriptionModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Active       *time.Time `gorm:"index"`
	LastNotified *time.Time `gorm:"index"`

	CenterLat *float64 `gorm:"type:decimal(10,8)"`
	CenterLng *float64 `gorm:"type:decimal(11,8)"`
	Radius    *float64 `gorm:"type:decimal(10,2)"`
	BoxLatMin *float64 `gorm:"type:decimal(10,8)"`
	BoxLonMin *float64 `gorm:"type:decimal(11,8)"`
	BoxLatMax *float64 `gorm:"type:decimal(10,8)"`
	BoxLonMax *float64 `gorm:"type:decimal(11,8)"`

	Address       string `gorm:"type:text"`
	RegionName    string `gorm:"type:varchar(128);index"`
	SiteName      string `gorm:"type:varchar(255)"`
	IncludeEvents bool   `gorm:"not null;default:false"`

	Query []byte `gorm:"type:jsonb"`
}

// TableName explicitly sets the table name for GORM.
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}
