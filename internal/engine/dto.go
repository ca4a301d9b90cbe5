package engine

// DTO状态标签，客户端在批量保存时逐条标注
const (
	StateOriginal = 0
	StateAdd      = 1
	StateDelete   = 2
	StateUpdate   = 3
)

// Entity 可同步实体的访问接口，由models.SyncModel提供实现
type Entity interface {
	GetID() uint
	SetID(uint)
	GetTenantID() uint
	SetTenantID(uint)
	GetCreateTime() int64
	SetCreateTime(int64)
	GetLastUpdateTime() int64
	SetLastUpdateTime(int64)
}

// DTO 传输对象接口，实体字段之外多一个State标签
type DTO interface {
	GetID() uint
	SetID(uint)
	GetTenantID() uint
	GetCreateTime() int64
	SetCreateTime(int64)
	GetLastUpdateTime() int64
	SetLastUpdateTime(int64)
	GetState() int
	SetState(int)
}

// BaseDTO 传输对象基础字段，内嵌进各实体的DTO
type BaseDTO struct {
	ID             uint  `json:"id"`
	TenantID       uint  `json:"tenant_id"`
	CreateTime     int64 `json:"create_time"`
	LastUpdateTime int64 `json:"last_update_time"`
	State          int   `json:"state"`
}

func (d *BaseDTO) GetID() uint                  { return d.ID }
func (d *BaseDTO) SetID(id uint)                { d.ID = id }
func (d *BaseDTO) GetTenantID() uint            { return d.TenantID }
func (d *BaseDTO) GetCreateTime() int64         { return d.CreateTime }
func (d *BaseDTO) SetCreateTime(t int64)        { d.CreateTime = t }
func (d *BaseDTO) GetLastUpdateTime() int64     { return d.LastUpdateTime }
func (d *BaseDTO) SetLastUpdateTime(t int64)    { d.LastUpdateTime = t }
func (d *BaseDTO) GetState() int                { return d.State }
func (d *BaseDTO) SetState(state int)           { d.State = state }
