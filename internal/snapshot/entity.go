package snapshot

import "time"

type Kind string

const (
	KindExport  Kind = "export"
	KindImport  Kind = "import"
	KindRestore Kind = "restore"
)

// Snapshot is one export, import or restore run. Exports keep the full
// document so a later restore does not depend on the file still existing.
type Snapshot struct {
	ID         string    `gorm:"column:id;primaryKey" json:"id"`
	Kind       Kind      `gorm:"column:kind;index" json:"kind"`
	Path       string    `gorm:"column:path" json:"path"`
	Checksum   string    `gorm:"column:checksum" json:"checksum"`
	Models     int       `gorm:"column:models" json:"models"`
	Categories int       `gorm:"column:categories" json:"categories"`
	Created    int       `gorm:"column:created" json:"created"`
	Updated    int       `gorm:"column:updated" json:"updated"`
	Skipped    int       `gorm:"column:skipped" json:"skipped"`
	Failed     int       `gorm:"column:failed" json:"failed"`
	DryRun     bool      `gorm:"column:dry_run" json:"dry_run"`
	Document   []byte    `gorm:"column:document" json:"-"`
	CreatedAt  time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Snapshot) TableName() string { return "catalog_snapshots" }
