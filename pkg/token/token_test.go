package token

import (
	"encoding/base64"
	"reflect"
	"testing"
	"time"

	"syncgate/pkg/apperrors"
)

func newTestCodec() *Codec {
	return NewCodec(NewAESProtector("unit-test-master-key"))
}

func TestSessionRoundTrip(t *testing.T) {
	codec := newTestCodec()

	tests := []struct {
		name    string
		session *LoginSession
	}{
		{
			name: "用户会话",
			session: &LoginSession{
				TenantID:   7,
				TenantName: "acme",
				UserID:     42,
				UserName:   "alice@acme.io",
				CreateTime: time.Now().UnixNano(),
				Claims: map[string][]string{
					"notes":  {"get", "add"},
					"orders": {"*"},
				},
			},
		},
		{
			name: "租户会话",
			session: &LoginSession{
				TenantID:   7,
				TenantName: "acme",
				CreateTime: time.Now().UnixNano(),
				Claims:     map[string][]string{"*": {}},
			},
		},
		{
			name: "空claim",
			session: &LoginSession{
				TenantID:   1,
				TenantName: "t",
				UserID:     2,
				UserName:   "u",
				CreateTime: 12345,
				Claims:     map[string][]string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenString, err := codec.CreateSession(tt.session)
			if err != nil {
				t.Fatalf("CreateSession: %v", err)
			}

			got, err := codec.VerifySession(tokenString)
			if err != nil {
				t.Fatalf("VerifySession: %v", err)
			}

			if !reflect.DeepEqual(got, tt.session) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, tt.session)
			}
		})
	}
}

func TestSessionCreateTimeDefault(t *testing.T) {
	codec := newTestCodec()

	before := time.Now().UnixNano()
	session := &LoginSession{TenantID: 1, TenantName: "acme"}
	tokenString, err := codec.CreateSession(session)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	after := time.Now().UnixNano()

	got, err := codec.VerifySession(tokenString)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if got.CreateTime < before || got.CreateTime > after {
		t.Errorf("CreateTime = %d, want within [%d, %d]", got.CreateTime, before, after)
	}
}

func TestSessionIsTenant(t *testing.T) {
	if !(&LoginSession{TenantID: 1}).IsTenant() {
		t.Error("UserID==0 should be tenant session")
	}
	if (&LoginSession{TenantID: 1, UserID: 3}).IsTenant() {
		t.Error("UserID!=0 should not be tenant session")
	}
}

// 翻转令牌的任意字节都必须报InvalidToken，绝不能解出另一个有效会话
func TestSessionTamperDetection(t *testing.T) {
	codec := newTestCodec()

	session := &LoginSession{
		TenantID:   3,
		TenantName: "acme",
		UserID:     9,
		UserName:   "bob",
		CreateTime: time.Now().UnixNano(),
		Claims:     map[string][]string{"notes": {"get"}},
	}
	tokenString, err := codec.CreateSession(session)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(tokenString)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}

	for i := range raw {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01

		_, err := codec.VerifySession(base64.RawURLEncoding.EncodeToString(tampered))
		if err == nil {
			t.Fatalf("byte %d: tampered token verified successfully", i)
		}
		if apperrors.KindOf(err) != apperrors.KindInvalidToken {
			t.Fatalf("byte %d: kind = %v, want KindInvalidToken", i, apperrors.KindOf(err))
		}
	}
}

func TestSessionGarbageInput(t *testing.T) {
	codec := newTestCodec()

	for _, input := range []string{"", "not-a-token", "!!!!", base64.RawURLEncoding.EncodeToString([]byte("short"))} {
		_, err := codec.VerifySession(input)
		if apperrors.KindOf(err) != apperrors.KindInvalidToken {
			t.Errorf("VerifySession(%q) kind = %v, want KindInvalidToken", input, apperrors.KindOf(err))
		}
	}
}

func TestPurposeTokenRoundTrip(t *testing.T) {
	codec := newTestCodec()

	tok := &PurposeToken{
		Purpose:    PurposeResetPassword,
		IsTenant:   true,
		Email:      "owner@acme.io",
		TenantName: "acme",
		TenantID:   5,
		CustomData: "extra",
	}
	tokenString, err := codec.CreatePurposeToken(tok)
	if err != nil {
		t.Fatalf("CreatePurposeToken: %v", err)
	}

	got, err := codec.VerifyPurposeToken(tokenString, PurposeResetPassword)
	if err != nil {
		t.Fatalf("VerifyPurposeToken: %v", err)
	}
	if !reflect.DeepEqual(got, tok) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, tok)
	}
}

// purpose是域分隔键：confirmemail签发的令牌不能通过resetpassword验证
func TestPurposeIsolation(t *testing.T) {
	codec := newTestCodec()

	tokenString, err := codec.CreatePurposeToken(&PurposeToken{
		Purpose: PurposeConfirmEmail,
		Email:   "owner@acme.io",
	})
	if err != nil {
		t.Fatalf("CreatePurposeToken: %v", err)
	}

	_, err = codec.VerifyPurposeToken(tokenString, PurposeResetPassword)
	if apperrors.KindOf(err) != apperrors.KindInvalidToken {
		t.Errorf("cross purpose verify kind = %v, want KindInvalidToken", apperrors.KindOf(err))
	}

	// 正确purpose依然可验证
	if _, err := codec.VerifyPurposeToken(tokenString, PurposeConfirmEmail); err != nil {
		t.Errorf("same purpose verify failed: %v", err)
	}
}

// 过期令牌签名仍有效，IsExpired单独判定
func TestPurposeTokenExpiry(t *testing.T) {
	codec := newTestCodec()

	tokenString, err := codec.CreatePurposeToken(&PurposeToken{
		Purpose:    PurposeResetPassword,
		Email:      "owner@acme.io",
		CreateTime: time.Now().Add(-time.Hour).UnixNano(),
		ExpireTime: time.Now().Add(-30 * time.Minute).UnixNano(),
	})
	if err != nil {
		t.Fatalf("CreatePurposeToken: %v", err)
	}

	got, err := codec.VerifyPurposeToken(tokenString, PurposeResetPassword)
	if err != nil {
		t.Fatalf("expired token must still pass signature verification: %v", err)
	}
	if !got.IsExpired() {
		t.Error("IsExpired() = false, want true")
	}
}

func TestPurposeTokenExpireDefault(t *testing.T) {
	codec := newTestCodec()

	before := time.Now()
	tokenString, err := codec.CreatePurposeToken(&PurposeToken{
		Purpose: PurposeResetPassword,
		Email:   "owner@acme.io",
	})
	if err != nil {
		t.Fatalf("CreatePurposeToken: %v", err)
	}

	got, err := codec.VerifyPurposeToken(tokenString, PurposeResetPassword)
	if err != nil {
		t.Fatalf("VerifyPurposeToken: %v", err)
	}

	lo := before.Add(DefaultPurposeTokenTTL).UnixNano()
	hi := time.Now().Add(DefaultPurposeTokenTTL).UnixNano()
	if got.ExpireTime < lo || got.ExpireTime > hi {
		t.Errorf("ExpireTime = %d, want within [%d, %d]", got.ExpireTime, lo, hi)
	}
	if got.IsExpired() {
		t.Error("fresh token reported expired")
	}
}

func TestPurposeTokenEmptyPurpose(t *testing.T) {
	codec := newTestCodec()
	if _, err := codec.CreatePurposeToken(&PurposeToken{}); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("empty purpose kind = %v, want KindValidation", apperrors.KindOf(err))
	}
}
