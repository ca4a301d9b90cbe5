package token

import (
	"sort"
	"time"

	"syncgate/pkg/apperrors"
)

// PurposeLoginSession 登录会话令牌的固定purpose
const PurposeLoginSession = "LoginSession"

// LoginSession 登录会话载荷。签发后不可变，是登录时刻的权限快照；
// 后续权限变更只能通过TokenValidTime水位线使其失效。
type LoginSession struct {
	TenantID   uint                `json:"tenant_id"`
	TenantName string              `json:"tenant_name"`
	UserID     uint                `json:"user_id"`
	UserName   string              `json:"user_name"`
	CreateTime int64               `json:"create_time"` // UnixNano
	Claims     map[string][]string `json:"claims"`      // key: controller, value: action列表
}

// IsTenant 租户会话的判定：UserID为0
func (s *LoginSession) IsTenant() bool {
	return s.UserID == 0
}

// encode 按固定字段顺序序列化：
// tenantID, tenantName, userID, userName, createTime,
// claim数量, (controller, action数量, action...)*
func (s *LoginSession) encode() []byte {
	w := &binaryWriter{}
	w.writeUint(s.TenantID)
	w.writeString(s.TenantName)
	w.writeUint(s.UserID)
	w.writeString(s.UserName)
	w.writeInt64(s.CreateTime)

	// claim按key排序，保证编码确定性
	keys := make([]string, 0, len(s.Claims))
	for k := range s.Claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w.writeCount(len(keys))
	for _, k := range keys {
		w.writeString(k)
		actions := s.Claims[k]
		w.writeCount(len(actions))
		for _, a := range actions {
			w.writeString(a)
		}
	}
	return w.bytes()
}

func decodeLoginSession(data []byte) (*LoginSession, error) {
	r := &binaryReader{data: data}
	s := &LoginSession{Claims: map[string][]string{}}

	var err error
	if s.TenantID, err = r.readUint(); err != nil {
		return nil, err
	}
	if s.TenantName, err = r.readString(); err != nil {
		return nil, err
	}
	if s.UserID, err = r.readUint(); err != nil {
		return nil, err
	}
	if s.UserName, err = r.readString(); err != nil {
		return nil, err
	}
	if s.CreateTime, err = r.readInt64(); err != nil {
		return nil, err
	}

	claimCount, err := r.readCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < claimCount; i++ {
		key, err := r.readString()
		if err != nil {
			return nil, err
		}
		actionCount, err := r.readCount()
		if err != nil {
			return nil, err
		}
		actions := make([]string, 0, actionCount)
		for j := 0; j < actionCount; j++ {
			a, err := r.readString()
			if err != nil {
				return nil, err
			}
			actions = append(actions, a)
		}
		s.Claims[key] = actions
	}

	if r.remaining() {
		return nil, apperrors.InvalidToken("token payload has trailing bytes")
	}
	return s, nil
}

// Codec 令牌编解码器
type Codec struct {
	protector Protector
}

func NewCodec(protector Protector) *Codec {
	return &Codec{protector: protector}
}

// CreateSession 签发登录会话令牌，CreateTime为空时取当前时间
func (c *Codec) CreateSession(session *LoginSession) (string, error) {
	if session.CreateTime == 0 {
		session.CreateTime = time.Now().UnixNano()
	}
	if session.Claims == nil {
		session.Claims = map[string][]string{}
	}
	return c.protector.Protect(PurposeLoginSession, session.encode())
}

// VerifySession 验证并还原登录会话。
// 损坏、篡改或purpose不符的令牌返回InvalidToken错误，绝不panic。
func (c *Codec) VerifySession(tokenString string) (*LoginSession, error) {
	plaintext, err := c.protector.Unprotect(PurposeLoginSession, tokenString)
	if err != nil {
		return nil, err
	}
	return decodeLoginSession(plaintext)
}
