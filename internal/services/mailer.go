package services

import (
	"github.com/sirupsen/logrus"

	"syncgate/pkg/logger"
)

// Mailer 单用途令牌的投递出口。
// 注册、找回密码等流程生成的令牌通过它送达用户。
type Mailer interface {
	SendPurposeToken(email, purpose, tokenString string) error
}

// LogMailer 默认实现，把令牌写进日志，真实投递由部署方接入
type LogMailer struct{}

// SendPurposeToken 记录待投递的令牌
func (LogMailer) SendPurposeToken(email, purpose, tokenString string) error {
	logger.GetLogger().WithFields(logrus.Fields{
		"email":   email,
		"purpose": purpose,
	}).Infof("单用途令牌待投递: %s", tokenString)
	return nil
}
