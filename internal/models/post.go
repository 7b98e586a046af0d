package models

import "time"

// Post is a single entry of an author's blog.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Image     string    `gorm:"size:255" json:"image,omitempty"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"pub_date"`
}

// Summary returns the first 15 characters of the text, used as the post's title.
func (p Post) Summary() string {
	r := []rune(p.Text)
	if len(r) <= 15 {
		return p.Text
	}
	return string(r[:15])
}
