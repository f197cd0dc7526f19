package model

import (
	"strings"
	"time"
)

// Content is an uploaded media item that can be published.
type Content struct {
	ID          string    `json:"id"           gorm:"primaryKey;size:64"`
	UserID      string    `json:"user_id"      gorm:"size:255;index"`
	Title       string    `json:"title"        gorm:"size:255"`
	Description string    `json:"description"  gorm:"type:text"`
	Tags        string    `json:"tags"         gorm:"size:1024"`
	Privacy     string    `json:"privacy"      gorm:"size:32"`
	BlobKey     string    `json:"blob_key"     gorm:"size:1024"`
	CoverKey    string    `json:"cover_key"    gorm:"size:1024"`
	ContentType string    `json:"content_type" gorm:"size:128"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"   gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time `json:"updated_at"   gorm:"autoUpdateTime"`
}

func (Content) TableName() string { return "contents" }

// TagList splits the comma separated tag column.
func (c *Content) TagList() []string {
	if strings.TrimSpace(c.Tags) == "" {
		return nil
	}
	parts := strings.Split(c.Tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
