package services

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"syncgate/pkg/logger"
	"syncgate/pkg/token"
)

// SessionVerifier 校验会话令牌，由启动代码注入（令牌解码+水位线检查）
type SessionVerifier func(tokenString string) (*token.LoginSession, error)

// changeNotice 推送给客户端的变更通知
type changeNotice struct {
	VersionNumber int64 `json:"version_number"`
	Time          int64 `json:"time"`
}

// notifyConn 包装连接并串行化写入，gorilla/websocket只允许一个并发写者
type notifyConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *notifyConn) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// NotifyHub 按租户分组的WebSocket通知中心。
// 同步引擎每次提交变更后广播新版本号，在线客户端据此立即拉取增量。
type NotifyHub struct {
	upgrader websocket.Upgrader
	verify   SessionVerifier

	mu    sync.RWMutex
	conns map[uint]map[*notifyConn]bool
}

// NewNotifyHub 创建通知中心
func NewNotifyHub(allowedOrigins []string, verify SessionVerifier) *NotifyHub {
	return &NotifyHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				logger.GetLogger().Warnf("WebSocket连接被拒绝，非法Origin: %s", origin)
				return false
			},
		},
		verify: verify,
		conns:  make(map[uint]map[*notifyConn]bool),
	}
}

// HandleConnect 处理WebSocket接入。
// WebSocket握手无法携带自定义header，令牌从查询参数传入
func (h *NotifyHub) HandleConnect(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	session, err := h.verify(tokenString)
	if err != nil {
		c.Status(http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.GetLogger().WithError(err).Warn("WebSocket升级失败")
		return
	}

	nc := &notifyConn{conn: conn}
	h.register(session.TenantID, nc)
	go h.readLoop(session.TenantID, nc)
}

// MutationCommitted 实现同步引擎的通知出口，向租户的所有连接广播新版本号
func (h *NotifyHub) MutationCommitted(tenantID uint, versionNumber int64) {
	notice := changeNotice{
		VersionNumber: versionNumber,
		Time:          time.Now().UnixNano(),
	}

	h.mu.RLock()
	conns := make([]*notifyConn, 0, len(h.conns[tenantID]))
	for nc := range h.conns[tenantID] {
		conns = append(conns, nc)
	}
	h.mu.RUnlock()

	for _, nc := range conns {
		if err := nc.writeJSON(notice); err != nil {
			h.unregister(tenantID, nc)
		}
	}
}

// Close 关闭所有连接
func (h *NotifyHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for tenantID, conns := range h.conns {
		for nc := range conns {
			nc.conn.Close()
		}
		delete(h.conns, tenantID)
	}
}

func (h *NotifyHub) register(tenantID uint, nc *notifyConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[tenantID] == nil {
		h.conns[tenantID] = make(map[*notifyConn]bool)
	}
	h.conns[tenantID][nc] = true
}

func (h *NotifyHub) unregister(tenantID uint, nc *notifyConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.conns[tenantID]; ok {
		delete(conns, nc)
		if len(conns) == 0 {
			delete(h.conns, tenantID)
		}
	}
	nc.conn.Close()
}

// readLoop 消费入站消息以感知连接关闭，通知通道是单向的
func (h *NotifyHub) readLoop(tenantID uint, nc *notifyConn) {
	defer h.unregister(tenantID, nc)
	for {
		if _, _, err := nc.conn.ReadMessage(); err != nil {
			return
		}
	}
}
