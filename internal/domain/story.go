package domain

import "time"

// StoryPage is one page of a story template. Number is 1-based and defines
// render order.
type StoryPage struct {
	Number       int      `json:"page"`
	Scene        string   `json:"scene"`
	Caption      string   `json:"text"`
	ImagePrompts []string `json:"image_prompts,omitempty"`
}

// StoryRecord is the persisted metadata of one generated document.
type StoryRecord struct {
	ID        int64
	AccountID *int64
	Title     string
	Subject   string
	Path      string
	ImagesDir string
	PageCount int
	CreatedAt time.Time
}
