package token

import (
	"time"

	"syncgate/pkg/apperrors"
)

// 内置的单用途令牌purpose
const (
	PurposeResetPassword = "resetpassword"
	PurposeConfirmEmail  = "confirmemail"
)

// DefaultPurposeTokenTTL 未指定ExpireTime时的默认有效期
const DefaultPurposeTokenTTL = 30 * time.Minute

// PurposeToken 单用途令牌载荷（密码重置、邮箱确认等一次性流程）。
// 创建与验证时的purpose必须一致，purpose即签名的域分隔键。
type PurposeToken struct {
	Purpose    string `json:"purpose"`
	IsTenant   bool   `json:"is_tenant"`
	Email      string `json:"email"`
	TenantName string `json:"tenant_name"`
	TenantID   uint   `json:"tenant_id"`
	CreateTime int64  `json:"create_time"` // UnixNano
	ExpireTime int64  `json:"expire_time"` // UnixNano
	CustomData string `json:"custom_data"`
}

// IsExpired 是否已过期。过期令牌签名仍然有效，调用方须单独拒绝。
func (t *PurposeToken) IsExpired() bool {
	return t.ExpireTime < time.Now().UnixNano()
}

func (t *PurposeToken) encode() []byte {
	w := &binaryWriter{}
	w.writeBool(t.IsTenant)
	w.writeString(t.Email)
	w.writeString(t.TenantName)
	w.writeUint(t.TenantID)
	w.writeInt64(t.CreateTime)
	w.writeInt64(t.ExpireTime)
	w.writeString(t.CustomData)
	return w.bytes()
}

func decodePurposeToken(data []byte) (*PurposeToken, error) {
	r := &binaryReader{data: data}
	t := &PurposeToken{}

	var err error
	if t.IsTenant, err = r.readBool(); err != nil {
		return nil, err
	}
	if t.Email, err = r.readString(); err != nil {
		return nil, err
	}
	if t.TenantName, err = r.readString(); err != nil {
		return nil, err
	}
	if t.TenantID, err = r.readUint(); err != nil {
		return nil, err
	}
	if t.CreateTime, err = r.readInt64(); err != nil {
		return nil, err
	}
	if t.ExpireTime, err = r.readInt64(); err != nil {
		return nil, err
	}
	if t.CustomData, err = r.readString(); err != nil {
		return nil, err
	}

	if r.remaining() {
		return nil, apperrors.InvalidToken("token payload has trailing bytes")
	}
	return t, nil
}

// CreatePurposeToken 签发单用途令牌。
// CreateTime为空取当前时间，ExpireTime为空取now+30分钟。
func (c *Codec) CreatePurposeToken(t *PurposeToken) (string, error) {
	if t.Purpose == "" {
		return "", apperrors.Validation("purpose cannot be empty")
	}
	now := time.Now()
	if t.CreateTime == 0 {
		t.CreateTime = now.UnixNano()
	}
	if t.ExpireTime == 0 {
		t.ExpireTime = now.Add(DefaultPurposeTokenTTL).UnixNano()
	}
	return c.protector.Protect(t.Purpose, t.encode())
}

// VerifyPurposeToken 验证单用途令牌。
// expectedPurpose与创建时不一致将解密失败，返回InvalidToken。
func (c *Codec) VerifyPurposeToken(tokenString, expectedPurpose string) (*PurposeToken, error) {
	plaintext, err := c.protector.Unprotect(expectedPurpose, tokenString)
	if err != nil {
		return nil, err
	}
	t, err := decodePurposeToken(plaintext)
	if err != nil {
		return nil, err
	}
	t.Purpose = expectedPurpose
	return t, nil
}
