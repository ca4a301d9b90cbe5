package controllers

import (
	"strconv"

	"syncgate/internal/dispatcher"
	"syncgate/internal/engine"
	"syncgate/pkg/apperrors"
	"syncgate/pkg/config"
	"syncgate/pkg/response"
	"syncgate/pkg/syncquery"
)

// EntityController 通用实体控制器，把同步引擎的操作暴露为HTTP action。
// 查询条件和DTO从请求体解析，编码由request头决定。
type EntityController[E engine.Entity, D engine.DTO] struct {
	engine *engine.Engine[E, D]
}

// NewEntityController 创建实体控制器
func NewEntityController[E engine.Entity, D engine.DTO](eng *engine.Engine[E, D]) *EntityController[E, D] {
	return &EntityController[E, D]{engine: eng}
}

// Invoke 按action分派到同步引擎
func (ct *EntityController[E, D]) Invoke(ctx *dispatcher.Context, action string) *response.Result {
	if ctx.Session == nil {
		return ctx.Error(apperrors.InvalidToken("实体操作需要登录会话"))
	}
	tenantID := ctx.Session.TenantID
	switch action {
	case "get":
		filter, err := ct.bindFilter(ctx, false)
		if err != nil {
			return ctx.Error(err)
		}
		result, err := ct.engine.Get(tenantID, filter)
		return ct.queryResult(ctx, result, err)
	case "getall":
		filter, err := ct.bindFilter(ctx, false)
		if err != nil {
			return ctx.Error(err)
		}
		result, err := ct.engine.GetAll(tenantID, filter)
		return ct.queryResult(ctx, result, err)
	case "getupdate":
		filter, err := ct.bindFilter(ctx, true)
		if err != nil {
			return ctx.Error(err)
		}
		result, err := ct.engine.GetUpdate(tenantID, filter)
		return ct.queryResult(ctx, result, err)
	case "getbyid":
		id, err := strconv.ParseUint(ctx.Query("id"), 10, 64)
		if err != nil {
			return ctx.Error(apperrors.Validation("id参数必须是正整数"))
		}
		dto, err := ct.engine.GetByID(tenantID, uint(id))
		if err != nil {
			return ctx.Error(err)
		}
		return response.Object(dto)
	case "add":
		dto := ct.engine.NewDTO()
		if err := ctx.BindBody(dto); err != nil {
			return ctx.Error(err)
		}
		id, err := ct.engine.Add(tenantID, dto)
		if err != nil {
			return ctx.Error(err)
		}
		return response.Object(id)
	case "update":
		dto := ct.engine.NewDTO()
		if err := ctx.BindBody(dto); err != nil {
			return ctx.Error(err)
		}
		if err := ct.engine.Update(tenantID, dto); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "delete":
		dto := ct.engine.NewDTO()
		if err := ctx.BindBody(dto); err != nil {
			return ctx.Error(err)
		}
		if err := ct.engine.Delete(tenantID, dto); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "save":
		var dtos []D
		if err := ctx.BindBody(&dtos); err != nil {
			return ctx.Error(err)
		}
		if err := ct.engine.Save(tenantID, dtos); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	default:
		return nil
	}
}

// bindFilter 解析查询条件，get/getall允许空请求体，getupdate必须带条件
func (ct *EntityController[E, D]) bindFilter(ctx *dispatcher.Context, required bool) (*syncquery.QueryFilter, error) {
	if ctx.Gin.Request.ContentLength == 0 {
		if required {
			return nil, apperrors.Validation("缺少查询条件")
		}
		return nil, nil
	}
	filter := &syncquery.QueryFilter{}
	if err := ctx.BindBody(filter); err != nil {
		return nil, err
	}
	return filter, nil
}

func (ct *EntityController[E, D]) queryResult(ctx *dispatcher.Context, result *syncquery.PagingResult[D], err error) *response.Result {
	if err != nil {
		return ctx.Error(err)
	}
	return response.Object(result)
}

// engineOptions 从全局配置推导单表的引擎开关
func engineOptions(cfg *config.Config, tableName string, deltaSync bool) engine.Options {
	return engine.Options{
		MaxItemAllowed:   cfg.Sync.MaxItemAllowed,
		DefaultPageSize:  cfg.Sync.DefaultPageSize,
		SupportDeltaSync: deltaSync,
		SkipTenantFilter: containsString(cfg.Sync.SkipTenantFilterTables, tableName),
		AllowGetAll:      containsString(cfg.Sync.AllowGetAllTables, tableName),
	}
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
