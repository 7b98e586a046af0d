package models

import "time"

// Follow is a directed subscription edge: UserID follows AuthorID.
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_follow_user_author" json:"user_id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_follow_user_author;index" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
