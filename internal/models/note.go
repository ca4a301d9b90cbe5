package models

import "gorm.io/datatypes"

// Note 笔记实体，支持增量同步
type Note struct {
	SyncModel
	Subject string         `json:"subject" gorm:"not null;size:200"`
	Body    string         `json:"body" gorm:"type:text"`
	Extra   datatypes.JSON `json:"extra" gorm:"type:jsonb"`
}

// TableName 表名
func (n *Note) TableName() string {
	return "notes"
}
