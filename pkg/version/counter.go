package version

import "sync"

// Counter 租户版本计数器。
// 每次提交成功的变更使对应租户的计数严格加一，只读操作不计数；
// 客户端用它做廉价的"有没有变化"判断，跳过整页拉取。
// 实现必须保证并发提交下不丢失计数。
type Counter interface {
	// Increase 计数加一，返回新值
	Increase(tenantID uint) (int64, error)
	// Current 当前计数，从未变更过的租户返回0
	Current(tenantID uint) (int64, error)
}

// MemoryCounter 进程内实现，互斥锁保护的租户计数表。
// 单实例部署够用；多实例部署用RedisCounter。
type MemoryCounter struct {
	mu       sync.Mutex
	versions map[uint]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		versions: make(map[uint]int64),
	}
}

func (c *MemoryCounter) Increase(tenantID uint) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[tenantID]++
	return c.versions[tenantID], nil
}

func (c *MemoryCounter) Current(tenantID uint) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[tenantID], nil
}
