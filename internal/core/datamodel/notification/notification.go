package notification

import "time"

type Notification struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;not null;index"`
	Title     string    `gorm:"column:title;not null"`
	Message   string    `gorm:"column:message;not null"`
	Type      string    `gorm:"column:type;not null"`
	IsRead    bool      `gorm:"column:is_read;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
