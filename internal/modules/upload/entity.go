package upload

import "time"

// Upload records one file pushed to media storage. ModelID and Field are
// empty for uploads that were not attached to a model.
type Upload struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	ModelID      string    `gorm:"column:model_id;index" json:"model_id,omitempty"`
	ModelName    string    `gorm:"column:model_name" json:"model_name,omitempty"`
	Field        string    `gorm:"column:field" json:"field,omitempty"`
	OriginalName string    `gorm:"column:original_name" json:"original_name"`
	Ref          string    `gorm:"column:ref" json:"ref"`
	URL          string    `gorm:"-" json:"url"`
	Store        string    `gorm:"column:store" json:"store"`
	MimeType     string    `gorm:"column:mime_type" json:"mime_type"`
	Size         int64     `gorm:"column:size" json:"size"`
	Optimized    bool      `gorm:"column:optimized" json:"optimized"`
	UploadedBy   string    `gorm:"column:uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Upload) TableName() string { return "catalog_uploads" }
