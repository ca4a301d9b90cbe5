package syncquery

import (
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"syncgate/pkg/apperrors"
)

// WhereOption 单个过滤条件，PropertyPath必须在表的字段白名单内
type WhereOption struct {
	PropertyPath string      `json:"property_path"`
	Operator     string      `json:"operator"`
	Value        interface{} `json:"value"`
}

// OrderOption 排序条件
type OrderOption struct {
	PropertyPath string `json:"property_path"`
	Ascending    bool   `json:"ascending"`
}

// QueryFilter 客户端查询表达式。
// PageSize由服务端按配置上限收缩；VersionNumber用于"无变化"短路。
type QueryFilter struct {
	WhereOptions  []WhereOption `json:"where_options"`
	OrderOptions  []OrderOption `json:"order_options"`
	PageIndex     int           `json:"page_index"`
	PageSize      int           `json:"page_size"`
	VersionNumber int64         `json:"version_number"`
}

// FindWhere 按属性名查找过滤条件
func (f *QueryFilter) FindWhere(propertyPath string) *WhereOption {
	for i := range f.WhereOptions {
		if f.WhereOptions[i].PropertyPath == propertyPath {
			return &f.WhereOptions[i]
		}
	}
	return nil
}

// 允许的过滤操作符到SQL的映射
var sqlOperators = map[string]string{
	"=":    "=",
	"!=":   "<>",
	">":    ">",
	">=":   ">=",
	"<":    "<",
	"<=":   "<=",
	"like": "LIKE",
	"in":   "IN",
}

// ApplyWhere 将过滤条件拼到查询上。
// 属性名必须在columns白名单中，操作符必须在允许集内，否则报ValidationError。
func ApplyWhere(query *gorm.DB, options []WhereOption, columns map[string]string) (*gorm.DB, error) {
	for _, opt := range options {
		column, ok := columns[opt.PropertyPath]
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("unknown filter property: %s", opt.PropertyPath))
		}
		sqlOp, ok := sqlOperators[opt.Operator]
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("unknown filter operator: %s", opt.Operator))
		}
		if sqlOp == "IN" {
			query = query.Where(fmt.Sprintf("%s IN ?", column), opt.Value)
		} else {
			query = query.Where(fmt.Sprintf("%s %s ?", column, sqlOp), opt.Value)
		}
	}
	return query, nil
}

// ApplyOrder 将排序条件拼到查询上，属性名同样走白名单
func ApplyOrder(query *gorm.DB, options []OrderOption, columns map[string]string) (*gorm.DB, error) {
	for _, opt := range options {
		column, ok := columns[opt.PropertyPath]
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("unknown order property: %s", opt.PropertyPath))
		}
		direction := "DESC"
		if opt.Ascending {
			direction = "ASC"
		}
		query = query.Order(fmt.Sprintf("%s %s", column, direction))
	}
	return query, nil
}

// Int64Value 从过滤值里提取int64。
// JSON反序列化出来的数字是float64，也兼容字符串形式。
func Int64Value(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
