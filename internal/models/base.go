package models

// SyncModel 可同步实体的基础模型。
// 时间戳统一为UnixNano，LastUpdateTime是增量同步的游标。
type SyncModel struct {
	ID             uint  `json:"id" gorm:"primarykey"`
	TenantID       uint  `json:"tenant_id" gorm:"not null;index"`
	CreateTime     int64 `json:"create_time" gorm:"not null"`
	LastUpdateTime int64 `json:"last_update_time" gorm:"not null;index"`
}

func (m *SyncModel) GetID() uint              { return m.ID }
func (m *SyncModel) SetID(id uint)            { m.ID = id }
func (m *SyncModel) GetTenantID() uint        { return m.TenantID }
func (m *SyncModel) SetTenantID(id uint)      { m.TenantID = id }
func (m *SyncModel) GetCreateTime() int64     { return m.CreateTime }
func (m *SyncModel) SetCreateTime(t int64)    { m.CreateTime = t }
func (m *SyncModel) GetLastUpdateTime() int64 { return m.LastUpdateTime }
func (m *SyncModel) SetLastUpdateTime(t int64) {
	m.LastUpdateTime = t
}
