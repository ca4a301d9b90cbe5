package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"syncgate/internal/models"
	"syncgate/pkg/apperrors"
	"syncgate/pkg/logger"
	"syncgate/pkg/syncquery"
	"syncgate/pkg/version"
)

// Engine 通用实体同步引擎
// 每张同步表实例化一个，负责分页查询、增量同步、批量保存和版本计数
type Engine[E Entity, D DTO] struct {
	db       *gorm.DB
	adapter  Adapter[E, D]
	counter  version.Counter
	opts     Options
	hooks    Hooks[E, D]
	notifier Notifier
	columns  map[string]string

	tableIDOnce sync.Once
	tableID     int
	tableIDErr  error
}

// New 创建同步引擎
func New[E Entity, D DTO](db *gorm.DB, adapter Adapter[E, D], counter version.Counter, opts Options) *Engine[E, D] {
	cols := baseColumns()
	for prop, col := range adapter.Columns() {
		cols[prop] = col
	}
	return &Engine[E, D]{
		db:      db,
		adapter: adapter,
		counter: counter,
		opts:    opts,
		columns: cols,
	}
}

// WithHooks 设置保存钩子
func (e *Engine[E, D]) WithHooks(hooks Hooks[E, D]) *Engine[E, D] {
	e.hooks = hooks
	return e
}

// WithNotifier 设置变更通知出口
func (e *Engine[E, D]) WithNotifier(n Notifier) *Engine[E, D] {
	e.notifier = n
	return e
}

// TableName 返回引擎管理的表名
func (e *Engine[E, D]) TableName() string {
	return e.adapter.TableName()
}

// NewDTO 生成该表的空DTO实例，控制器解析请求体时使用
func (e *Engine[E, D]) NewDTO() D {
	return e.adapter.NewDTO()
}

// ========== 查询 ==========

// Get 条件查询
// filter为nil时返回租户全部数据；带版本号且与当前版本一致时短路返回空结果；
// PageIndex大于0走分页，否则受MaxItemAllowed上限保护
func (e *Engine[E, D]) Get(tenantID uint, filter *syncquery.QueryFilter) (*syncquery.PagingResult[D], error) {
	result := &syncquery.PagingResult[D]{Items: []D{}}
	result.LastUpdateTime = time.Now().UnixNano()
	result.VersionNumber = e.currentVersion(tenantID)

	if filter == nil {
		query := e.scopedQuery(tenantID)
		entities, err := e.findEntities(query)
		if err != nil {
			return nil, err
		}
		e.fillItems(result, entities)
		return result, nil
	}

	// 版本号一致说明客户端数据已是最新，短路返回
	if filter.VersionNumber != 0 && filter.VersionNumber == result.VersionNumber {
		return result, nil
	}

	query, err := syncquery.ApplyWhere(e.scopedQuery(tenantID), filter.WhereOptions, e.columns)
	if err != nil {
		return nil, err
	}

	if filter.PageIndex > 0 {
		return e.findPaged(result, query, filter)
	}

	// 不分页时先数总量，超限直接报错而不是静默截断
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Store(err)
	}
	if total > int64(e.opts.MaxItemAllowed) {
		return nil, apperrors.SetTooLarge(fmt.Sprintf("结果集有 %d 条，超过上限 %d，请分页查询", total, e.opts.MaxItemAllowed))
	}
	query, err = syncquery.ApplyOrder(query, filter.OrderOptions, e.columns)
	if err != nil {
		return nil, err
	}
	entities, err := e.findEntities(query)
	if err != nil {
		return nil, err
	}
	e.fillItems(result, entities)
	return result, nil
}

// GetAll 全量拉取，仅对显式配置允许的表开放，不受条数上限约束
func (e *Engine[E, D]) GetAll(tenantID uint, filter *syncquery.QueryFilter) (*syncquery.PagingResult[D], error) {
	if !e.opts.AllowGetAll {
		return nil, apperrors.Unsupported(fmt.Sprintf("表 %s 不支持全量拉取", e.adapter.TableName()))
	}

	result := &syncquery.PagingResult[D]{Items: []D{}}
	result.LastUpdateTime = time.Now().UnixNano()
	result.VersionNumber = e.currentVersion(tenantID)

	query := e.scopedQuery(tenantID)
	if filter != nil {
		if filter.VersionNumber != 0 && filter.VersionNumber == result.VersionNumber {
			return result, nil
		}
		var err error
		query, err = syncquery.ApplyWhere(query, filter.WhereOptions, e.columns)
		if err != nil {
			return nil, err
		}
		query, err = syncquery.ApplyOrder(query, filter.OrderOptions, e.columns)
		if err != nil {
			return nil, err
		}
	}
	entities, err := e.findEntities(query)
	if err != nil {
		return nil, err
	}
	e.fillItems(result, entities)
	return result, nil
}

// GetUpdate 增量同步
// 客户端通过LastUpdateTime条件携带上次同步水位，返回此后新增/修改的实体
// 以及同一窗口内的墓碑记录；整个窗口以单一快照时间收口，保证不漏不重
func (e *Engine[E, D]) GetUpdate(tenantID uint, filter *syncquery.QueryFilter) (*syncquery.PagingResult[D], error) {
	if !e.opts.SupportDeltaSync {
		return nil, apperrors.Unsupported(fmt.Sprintf("表 %s 不支持增量同步", e.adapter.TableName()))
	}
	if filter == nil {
		return nil, apperrors.Validation("增量同步请求必须携带查询条件")
	}
	lastOpt := filter.FindWhere("LastUpdateTime")
	if lastOpt == nil {
		return nil, apperrors.Validation("增量同步请求必须携带 LastUpdateTime 条件")
	}
	lastUpdate, ok := syncquery.Int64Value(lastOpt.Value)
	if !ok {
		return nil, apperrors.Validation("LastUpdateTime 条件值必须是整数时间戳")
	}

	tableID, err := e.resolveTableID()
	if err != nil {
		return nil, err
	}

	// 快照时间只取一次，实体和墓碑都以它收口，下次同步从这里继续
	snapshot := time.Now().UnixNano()

	result := &syncquery.PagingResult[D]{Items: []D{}}
	result.LastUpdateTime = snapshot
	result.VersionNumber = e.currentVersion(tenantID)

	query, err := syncquery.ApplyWhere(e.scopedQuery(tenantID), filter.WhereOptions, e.columns)
	if err != nil {
		return nil, err
	}
	query = query.Where("last_update_time <= ?", snapshot)

	tombQuery := e.db.Model(&models.DeletedItem{}).
		Where("tenant_id = ? AND table_id = ? AND create_time > ? AND create_time <= ?",
			tenantID, tableID, lastUpdate, snapshot)

	var entityCount, tombCount int64
	if err := query.Count(&entityCount).Error; err != nil {
		return nil, apperrors.Store(err)
	}
	if err := tombQuery.Count(&tombCount).Error; err != nil {
		return nil, apperrors.Store(err)
	}
	if entityCount+tombCount > int64(e.opts.MaxItemAllowed) {
		return nil, apperrors.SetTooLarge(fmt.Sprintf("增量结果有 %d 条，超过上限 %d", entityCount+tombCount, e.opts.MaxItemAllowed))
	}

	entities, err := e.findEntities(query)
	if err != nil {
		return nil, err
	}
	for _, entity := range entities {
		dto := e.adapter.ToDTO(entity)
		// 创建时间在水位之后的是新实体，否则是修改
		if entity.GetCreateTime() > lastUpdate {
			dto.SetState(StateAdd)
		} else {
			dto.SetState(StateUpdate)
		}
		result.Items = append(result.Items, dto)
	}

	var tombstones []models.DeletedItem
	if err := tombQuery.Find(&tombstones).Error; err != nil {
		return nil, apperrors.Store(err)
	}
	for _, tomb := range tombstones {
		stub := e.adapter.NewDTO()
		stub.SetID(tomb.DeletedID)
		stub.SetCreateTime(tomb.CreateTime)
		stub.SetState(StateDelete)
		result.Items = append(result.Items, stub)
	}

	result.TotalItemCount = int64(len(result.Items))
	return result, nil
}

// GetByID 按主键取单个实体，跨租户不可见
func (e *Engine[E, D]) GetByID(tenantID uint, id uint) (D, error) {
	entity := e.adapter.NewEntity()
	err := e.scopedQuery(tenantID).Where("id = ?", id).First(entity).Error
	if err != nil {
		var zero D
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, apperrors.NotFound(fmt.Sprintf("实体 %d 不存在", id))
		}
		return zero, apperrors.Store(err)
	}
	return e.adapter.ToDTO(entity), nil
}

// ========== 写入 ==========

// Add 新增单个实体，返回存储分配的主键
func (e *Engine[E, D]) Add(tenantID uint, dto D) (uint, error) {
	dto.SetState(StateAdd)
	entity := e.newEntityFrom(tenantID, dto)
	entity.SetID(0)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.runBeforeSave(tx, tenantID, []D{dto}); err != nil {
			return err
		}
		if err := tx.Create(entity).Error; err != nil {
			return apperrors.Store(err)
		}
		return e.runAfterSave(tx, tenantID, []D{dto}, []E{entity})
	})
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	e.mutationCommitted(tenantID)
	return entity.GetID(), nil
}

// Update 修改单个实体，目标不在本租户内时整体拒绝
func (e *Engine[E, D]) Update(tenantID uint, dto D) error {
	dto.SetState(StateUpdate)
	if err := e.checkDTOTenant(tenantID, dto); err != nil {
		return err
	}
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.runBeforeSave(tx, tenantID, []D{dto}); err != nil {
			return err
		}
		entity, err := e.updateTx(tx, tenantID, dto)
		if err != nil {
			return err
		}
		return e.runAfterSave(tx, tenantID, []D{dto}, []E{entity})
	})
	if err != nil {
		return wrapStoreErr(err)
	}
	e.mutationCommitted(tenantID)
	return nil
}

// Delete 删除单个实体，同一事务内写入墓碑
func (e *Engine[E, D]) Delete(tenantID uint, dto D) error {
	dto.SetState(StateDelete)
	if err := e.checkDTOTenant(tenantID, dto); err != nil {
		return err
	}
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.runBeforeSave(tx, tenantID, []D{dto}); err != nil {
			return err
		}
		entity, err := e.deleteTx(tx, tenantID, dto)
		if err != nil {
			return err
		}
		return e.runAfterSave(tx, tenantID, []D{dto}, []E{entity})
	})
	if err != nil {
		return wrapStoreErr(err)
	}
	e.mutationCommitted(tenantID)
	return nil
}

// Save 批量保存，按每条DTO的State标签分派
// 整批先校验再落库，任何一条失败全部回滚，版本号只在提交成功后加一
func (e *Engine[E, D]) Save(tenantID uint, dtos []D) error {
	if len(dtos) == 0 {
		return nil
	}
	if len(dtos) > e.opts.MaxItemAllowed {
		return apperrors.SetTooLarge(fmt.Sprintf("批量保存 %d 条，超过上限 %d", len(dtos), e.opts.MaxItemAllowed))
	}
	// 先整体校验，存储不被带着未知标签的批次碰到
	for _, dto := range dtos {
		switch dto.GetState() {
		case StateAdd, StateUpdate, StateDelete:
		default:
			return apperrors.Validation(fmt.Sprintf("无法识别的状态标签 %d", dto.GetState()))
		}
		if err := e.checkDTOTenant(tenantID, dto); err != nil {
			return err
		}
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.runBeforeSave(tx, tenantID, dtos); err != nil {
			return err
		}
		entities := make([]E, 0, len(dtos))
		for _, dto := range dtos {
			var entity E
			var err error
			switch dto.GetState() {
			case StateAdd:
				entity = e.newEntityFrom(tenantID, dto)
				entity.SetID(0)
				if err := tx.Create(entity).Error; err != nil {
					return apperrors.Store(err)
				}
				dto.SetID(entity.GetID())
			case StateUpdate:
				entity, err = e.updateTx(tx, tenantID, dto)
				if err != nil {
					return err
				}
			case StateDelete:
				entity, err = e.deleteTx(tx, tenantID, dto)
				if err != nil {
					return err
				}
			}
			entities = append(entities, entity)
		}
		return e.runAfterSave(tx, tenantID, dtos, entities)
	})
	if err != nil {
		return wrapStoreErr(err)
	}
	e.mutationCommitted(tenantID)
	return nil
}

// ========== 内部 ==========

func (e *Engine[E, D]) scopedQuery(tenantID uint) *gorm.DB {
	query := e.db.Model(e.adapter.NewEntity())
	if !e.opts.SkipTenantFilter {
		query = query.Where("tenant_id = ?", tenantID)
	}
	return query
}

func (e *Engine[E, D]) findEntities(query *gorm.DB) ([]E, error) {
	var entities []E
	if err := query.Find(&entities).Error; err != nil {
		return nil, apperrors.Store(err)
	}
	return entities, nil
}

func (e *Engine[E, D]) fillItems(result *syncquery.PagingResult[D], entities []E) {
	for _, entity := range entities {
		result.Items = append(result.Items, e.adapter.ToDTO(entity))
	}
	result.TotalItemCount = int64(len(result.Items))
}

func (e *Engine[E, D]) findPaged(result *syncquery.PagingResult[D], query *gorm.DB, filter *syncquery.QueryFilter) (*syncquery.PagingResult[D], error) {
	pageSize := syncquery.ClampPageSize(filter.PageSize, e.opts.DefaultPageSize, e.opts.MaxItemAllowed)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Store(err)
	}
	orders := filter.OrderOptions
	if len(orders) == 0 {
		// 分页必须有确定顺序，否则翻页会漏数据
		orders = []syncquery.OrderOption{{PropertyPath: "ID", Ascending: true}}
	}
	query, err := syncquery.ApplyOrder(query, orders, e.columns)
	if err != nil {
		return nil, err
	}
	entities, err := e.findEntities(query.Offset((filter.PageIndex - 1) * pageSize).Limit(pageSize))
	if err != nil {
		return nil, err
	}
	for _, entity := range entities {
		result.Items = append(result.Items, e.adapter.ToDTO(entity))
	}
	result.TotalItemCount = total
	result.PageIndex = filter.PageIndex
	result.PageSize = pageSize
	result.PageCount = syncquery.PageCount(total, pageSize)
	return result, nil
}

func (e *Engine[E, D]) newEntityFrom(tenantID uint, dto D) E {
	now := time.Now().UnixNano()
	entity := e.adapter.ToEntity(dto)
	entity.SetTenantID(tenantID)
	entity.SetCreateTime(now)
	entity.SetLastUpdateTime(now)
	return entity
}

// checkDTOTenant DTO声明了归属租户时必须与会话一致
func (e *Engine[E, D]) checkDTOTenant(tenantID uint, dto D) error {
	if e.opts.SkipTenantFilter {
		return nil
	}
	if dto.GetState() == StateAdd {
		return nil
	}
	if dto.GetTenantID() != 0 && dto.GetTenantID() != tenantID {
		return apperrors.TenantMismatch("实体不属于当前租户")
	}
	return nil
}

// updateTx 在事务内修改实体，先确认实体在本租户内，不存在视同越权
func (e *Engine[E, D]) updateTx(tx *gorm.DB, tenantID uint, dto D) (E, error) {
	var zero E
	if err := e.ensureOwned(tx, tenantID, dto.GetID()); err != nil {
		return zero, err
	}
	entity := e.adapter.ToEntity(dto)
	entity.SetTenantID(tenantID)
	entity.SetLastUpdateTime(time.Now().UnixNano())
	if err := tx.Save(entity).Error; err != nil {
		return zero, apperrors.Store(err)
	}
	return entity, nil
}

// deleteTx 在事务内删除实体并写入墓碑
func (e *Engine[E, D]) deleteTx(tx *gorm.DB, tenantID uint, dto D) (E, error) {
	var zero E
	if err := e.ensureOwned(tx, tenantID, dto.GetID()); err != nil {
		return zero, err
	}
	entity := e.adapter.NewEntity()
	entity.SetID(dto.GetID())
	if err := tx.Where("id = ? AND tenant_id = ?", dto.GetID(), tenantID).Delete(e.adapter.NewEntity()).Error; err != nil {
		return zero, apperrors.Store(err)
	}
	if err := e.appendTombstone(tx, tenantID, dto.GetID()); err != nil {
		return zero, err
	}
	return entity, nil
}

// ensureOwned 目标不在本租户内和根本不存在返回同一个错误，避免泄露他租户数据是否存在
func (e *Engine[E, D]) ensureOwned(tx *gorm.DB, tenantID uint, id uint) error {
	query := tx.Model(e.adapter.NewEntity()).Where("id = ?", id)
	if !e.opts.SkipTenantFilter {
		query = query.Where("tenant_id = ?", tenantID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Store(err)
	}
	if count == 0 {
		return apperrors.TenantMismatch("实体不属于当前租户")
	}
	return nil
}

// runBeforeSave 写入前钩子，未注册时直接放行
func (e *Engine[E, D]) runBeforeSave(tx *gorm.DB, tenantID uint, dtos []D) error {
	if e.hooks.BeforeSave == nil {
		return nil
	}
	return e.hooks.BeforeSave(tx, tenantID, dtos)
}

// runAfterSave 写入后钩子，与写入同属一个事务
func (e *Engine[E, D]) runAfterSave(tx *gorm.DB, tenantID uint, dtos []D, entities []E) error {
	if e.hooks.AfterSave == nil {
		return nil
	}
	return e.hooks.AfterSave(tx, tenantID, dtos, entities)
}

func (e *Engine[E, D]) appendTombstone(tx *gorm.DB, tenantID uint, deletedID uint) error {
	if !e.opts.SupportDeltaSync {
		return nil
	}
	tableID, err := e.resolveTableID()
	if err != nil {
		return err
	}
	tomb := &models.DeletedItem{
		TenantID:   tenantID,
		TableID:    tableID,
		DeletedID:  deletedID,
		CreateTime: time.Now().UnixNano(),
	}
	if err := tx.Create(tomb).Error; err != nil {
		return apperrors.Store(err)
	}
	return nil
}

// resolveTableID 查同步表注册，结果缓存，未登记的表不支持增量同步
func (e *Engine[E, D]) resolveTableID() (int, error) {
	e.tableIDOnce.Do(func() {
		var table models.SyncTable
		err := e.db.Where("table_name = ?", e.adapter.TableName()).First(&table).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				e.tableIDErr = apperrors.Unsupported(fmt.Sprintf("表 %s 未登记为同步表", e.adapter.TableName()))
			} else {
				e.tableIDErr = apperrors.Store(err)
			}
			return
		}
		e.tableID = table.ID
	})
	return e.tableID, e.tableIDErr
}

// currentVersion 读当前租户版本号，计数器不可用时按0处理，只影响短路优化
func (e *Engine[E, D]) currentVersion(tenantID uint) int64 {
	current, err := e.counter.Current(tenantID)
	if err != nil {
		logger.GetLogger().WithError(err).Warn("读取版本计数器失败")
		return 0
	}
	return current
}

// mutationCommitted 提交成功后版本号加一并对外通知
func (e *Engine[E, D]) mutationCommitted(tenantID uint) {
	next, err := e.counter.Increase(tenantID)
	if err != nil {
		logger.GetLogger().WithError(err).Warn("递增版本计数器失败")
		return
	}
	if e.notifier != nil {
		e.notifier.MutationCommitted(tenantID, next)
	}
}

// wrapStoreErr 事务内冒出的裸错误统一按存储错误归类
func wrapStoreErr(err error) error {
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	return apperrors.Store(err)
}
