package syncquery

import "math"

// PagingResult 查询结果的统一返回格式。
// LastUpdateTime是服务端本次查询的快照时间，增量同步的下一次起点；
// VersionNumber是租户版本计数，客户端相等时可跳过拉取。
type PagingResult[T any] struct {
	Items          []T    `json:"items"`
	TotalItemCount int64  `json:"total_item_count"`
	PageIndex      int    `json:"page_index"`
	PageCount      int    `json:"page_count"`
	PageSize       int    `json:"page_size"`
	LastUpdateTime int64  `json:"last_update_time"`
	VersionNumber  int64  `json:"version_number"`
	ErrorMsg       string `json:"error_msg,omitempty"`
}

// PageCount 总页数 = ceil(total / pageSize)
func PageCount(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

// ClampPageSize 收缩分页大小：非法值取默认值，超上限取上限
func ClampPageSize(requested, defaultSize, maxAllowed int) int {
	if requested <= 0 {
		requested = defaultSize
	}
	if requested > maxAllowed {
		requested = maxAllowed
	}
	return requested
}
