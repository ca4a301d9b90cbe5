package engine

import (
	"gorm.io/gorm"
)

// Adapter 实体与DTO之间的转换器，每张同步表注册一个
type Adapter[E Entity, D DTO] interface {
	// TableName 返回实体对应的数据库表名
	TableName() string
	// NewEntity 返回一个空实体实例
	NewEntity() E
	// NewDTO 返回一个空DTO实例（用于墓碑占位等场景）
	NewDTO() D
	// ToDTO 实体转DTO
	ToDTO(entity E) D
	// ToEntity DTO转实体
	ToEntity(dto D) E
	// Columns 返回允许出现在查询条件中的属性到列名的映射
	// 基础字段（ID、TenantID、CreateTime、LastUpdateTime）由引擎自动补充
	Columns() map[string]string
}

// Options 引擎行为开关，按表配置
type Options struct {
	MaxItemAllowed   int  // 不分页请求允许的最大条数
	DefaultPageSize  int  // 客户端未指定时的页大小
	SupportDeltaSync bool // 是否登记在同步表注册里并维护墓碑
	SkipTenantFilter bool // 跨租户共享表不加tenant_id过滤
	AllowGetAll      bool // 是否允许不设上限的全量拉取
}

// Hooks 保存前后的扩展点，在同一事务内执行
type Hooks[E Entity, D DTO] struct {
	BeforeSave func(tx *gorm.DB, tenantID uint, dtos []D) error
	AfterSave  func(tx *gorm.DB, tenantID uint, dtos []D, entities []E) error
}

// Notifier 变更提交后的通知出口
type Notifier interface {
	MutationCommitted(tenantID uint, versionNumber int64)
}

// 基础字段的属性到列名映射
func baseColumns() map[string]string {
	return map[string]string{
		"ID":             "id",
		"TenantID":       "tenant_id",
		"CreateTime":     "create_time",
		"LastUpdateTime": "last_update_time",
	}
}
