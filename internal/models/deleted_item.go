package models

// DeletedItem 删除墓碑，按租户和表记录每次删除。
// 只追加不修改，增量同步靠它把删除传播给离线客户端。
type DeletedItem struct {
	ID         uint  `json:"id" gorm:"primarykey"`
	TenantID   uint  `json:"tenant_id" gorm:"not null;index:idx_deleted_items_scope"`
	TableID    int   `json:"table_id" gorm:"not null;index:idx_deleted_items_scope"`
	DeletedID  uint  `json:"deleted_id" gorm:"not null"`
	CreateTime int64 `json:"create_time" gorm:"not null;index"`
}

// TableName 表名
func (d *DeletedItem) TableName() string {
	return "deleted_items"
}
