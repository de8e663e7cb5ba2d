package video

import "time"

// Video is a stored clip. Size and Duration are always probe measurements of
// the file named by Filename under the upload root.
type Video struct {
	ID           string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Filename     string    `gorm:"column:filename;not null;uniqueIndex" json:"filename"`
	OriginalName string    `gorm:"column:original_name;not null" json:"originalName"`
	Duration     int64     `gorm:"column:duration;not null" json:"duration"`
	Size         int64     `gorm:"column:size;not null" json:"size"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"createdAt"`
}

func (Video) TableName() string { return "videos" }

// ShareLink grants credential-free access to one video until ExpiresAt.
type ShareLink struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	VideoID   string    `gorm:"column:video_id;not null;index;size:36" json:"videoId"`
	Video     *Video    `gorm:"foreignKey:VideoID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Token     string    `gorm:"column:token;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" json:"expiresAt"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`
}

func (ShareLink) TableName() string { return "shared_links" }

// ActiveAt reports whether the link still resolves at now. Expiry is exclusive.
func (l *ShareLink) ActiveAt(now time.Time) bool {
	return now.Before(l.ExpiresAt)
}
