package models

// SyncTable 同步表注册项，给每个支持增量同步的表一个稳定的整数ID
type SyncTable struct {
	ID        int    `json:"id" gorm:"primarykey"`
	Name string `json:"table_name" gorm:"column:table_name;unique;not null;size:100"`
}

// TableName 表名
func (t *SyncTable) TableName() string {
	return "sync_tables"
}
