package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"syncgate/pkg/apperrors"
)

// Protector 按purpose隔离的加密保护能力。
// Protect输出不透明字符串，Unprotect还原明文；
// purpose不一致时Unprotect必须失败，不能静默成功。
type Protector interface {
	Protect(purpose string, plaintext []byte) (string, error)
	Unprotect(purpose string, opaque string) ([]byte, error)
}

// AESProtector 基于AES-256-GCM的Protector实现。
// 子密钥 = HMAC-SHA256(主密钥, purpose)，purpose即密钥派生的域分隔参数。
type AESProtector struct {
	masterKey []byte
}

func NewAESProtector(masterKey string) *AESProtector {
	return &AESProtector{masterKey: []byte(masterKey)}
}

// purposeKey 派生purpose专属的32字节子密钥
func (p *AESProtector) purposeKey(purpose string) []byte {
	mac := hmac.New(sha256.New, p.masterKey)
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}

func (p *AESProtector) aead(purpose string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(p.purposeKey(purpose))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (p *AESProtector) Protect(purpose string, plaintext []byte) (string, error) {
	gcm, err := p.aead(purpose)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// nonce置于密文前，解密时按长度切分
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (p *AESProtector) Unprotect(purpose string, opaque string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		return nil, apperrors.InvalidToken("token format invalid")
	}

	gcm, err := p.aead(purpose)
	if err != nil {
		return nil, apperrors.InvalidToken("token format invalid")
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, apperrors.InvalidToken("token too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// 篡改、损坏或purpose不匹配都走这里
		return nil, apperrors.InvalidToken("token verification failed")
	}

	return plaintext, nil
}
