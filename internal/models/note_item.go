package models

// NoteItem Note的子条目，支持增量同步
type NoteItem struct {
	SyncModel
	NoteID  uint   `json:"note_id" gorm:"not null;index"`
	Content string `json:"content" gorm:"not null;size:500"`
	Done    bool   `json:"done" gorm:"default:false"`
}

// TableName 表名
func (i *NoteItem) TableName() string {
	return "note_items"
}
