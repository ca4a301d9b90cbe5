package services

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"syncgate/internal/models"
	"syncgate/pkg/apperrors"
	"syncgate/pkg/authz"
	"syncgate/pkg/token"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// 允许通过requesttoken接口签发的单用途令牌
var knownPurposes = map[string]bool{
	token.PurposeResetPassword: true,
	token.PurposeConfirmEmail:  true,
}

// AuthService 认证服务：注册、登录、密码和令牌生命周期
type AuthService struct {
	db         *gorm.DB
	codec      *token.Codec
	mailer     Mailer
	purposeTTL time.Duration
}

// NewAuthService 创建认证服务实例
func NewAuthService(db *gorm.DB, codec *token.Codec, mailer Mailer, purposeTTL time.Duration) *AuthService {
	if purposeTTL <= 0 {
		purposeTTL = token.DefaultPurposeTokenTTL
	}
	return &AuthService{db: db, codec: codec, mailer: mailer, purposeTTL: purposeTTL}
}

// Register 注册新租户。
// 创建时密码为空且未确认，需通过邮件里的令牌完成确认和设密，
// 两张令牌都经Mailer投递。
func (s *AuthService) Register(email, tenantName string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	tenantName = strings.TrimSpace(tenantName)
	if !emailPattern.MatchString(email) {
		return apperrors.Validation("邮箱格式不正确")
	}
	if tenantName == "" {
		return apperrors.Validation("租户名不能为空")
	}

	var count int64
	if err := s.db.Model(&models.Tenant{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return apperrors.Store(err)
	}
	if count > 0 {
		return apperrors.Validation("邮箱已被注册")
	}
	if err := s.db.Model(&models.Tenant{}).Where("tenant_name = ?", tenantName).Count(&count).Error; err != nil {
		return apperrors.Store(err)
	}
	if count > 0 {
		return apperrors.Validation("租户名已被占用")
	}

	tenant := &models.Tenant{
		Email:          email,
		TenantName:     tenantName,
		CreateDate:     time.Now(),
		TokenValidTime: time.Now().UnixNano(),
	}
	if err := s.db.Create(tenant).Error; err != nil {
		return apperrors.Store(err)
	}

	if err := s.sendPurposeToken(token.PurposeConfirmEmail, true, tenant.ID, email, tenantName); err != nil {
		return err
	}
	return s.sendPurposeToken(token.PurposeResetPassword, true, tenant.ID, email, tenantName)
}

// TenantLogin 租户登录，成功返回会话令牌。
// 租户会话直接携带"*"claim，对所有controller均有权限。
func (s *AuthService) TenantLogin(email, password string) (string, error) {
	tenant, err := s.findTenantByEmail(email)
	if err != nil {
		return "", err
	}
	if err := checkPrincipal(tenant.IsLocked, tenant.IsConfirmed, tenant.CheckPassword(password)); err != nil {
		return "", err
	}
	return s.codec.CreateSession(&token.LoginSession{
		TenantID:   tenant.ID,
		TenantName: tenant.TenantName,
		UserID:     0,
		UserName:   tenant.TenantName,
		CreateTime: time.Now().UnixNano(),
		Claims:     map[string][]string{authz.WildcardClaim: {}},
	})
}

// UserLogin 用户登录，claim来自user_claims表的折叠
func (s *AuthService) UserLogin(tenantName, email, password string) (string, error) {
	tenant, err := s.findTenantByName(tenantName)
	if err != nil {
		return "", err
	}
	if tenant.IsLocked {
		return "", apperrors.PermissionDenied("租户已被锁定")
	}
	user, err := s.findUser(tenant.ID, email)
	if err != nil {
		return "", err
	}
	if err := checkPrincipal(user.IsLocked, user.IsConfirmed, user.CheckPassword(password)); err != nil {
		return "", err
	}

	claims, err := s.loadUserClaims(user.ID)
	if err != nil {
		return "", err
	}
	return s.codec.CreateSession(&token.LoginSession{
		TenantID:   tenant.ID,
		TenantName: tenant.TenantName,
		UserID:     user.ID,
		UserName:   user.UserName,
		CreateTime: time.Now().UnixNano(),
		Claims:     claims,
	})
}

// LockUser 锁定或解锁本租户下的用户，仅租户会话可用。
// 同时推进目标用户的水位线，已签发的令牌立即失效。
func (s *AuthService) LockUser(session *token.LoginSession, email string, isLocked bool) error {
	if !session.IsTenant() {
		return apperrors.PermissionDenied("仅租户可以锁定用户")
	}
	user, err := s.findUser(session.TenantID, email)
	if err != nil {
		return err
	}
	err = s.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"is_locked":        isLocked,
		"token_valid_time": time.Now().UnixNano(),
	}).Error
	if err != nil {
		return apperrors.Store(err)
	}
	return nil
}

// ChangePassword 修改当前登录主体的密码并吊销所有已签发令牌
func (s *AuthService) ChangePassword(session *token.LoginSession, currentPass, newPass string) error {
	if newPass == "" {
		return apperrors.Validation("新密码不能为空")
	}
	if session.IsTenant() {
		var tenant models.Tenant
		if err := s.db.Where("id = ?", session.TenantID).First(&tenant).Error; err != nil {
			return storeOrNotFound(err, "租户不存在")
		}
		if !tenant.CheckPassword(currentPass) {
			return apperrors.PermissionDenied("当前密码错误")
		}
		if err := tenant.SetPassword(newPass); err != nil {
			return apperrors.Store(err)
		}
		return s.updatePassword(&models.Tenant{}, tenant.ID, tenant.PasswordHash)
	}

	var user models.User
	if err := s.db.Where("id = ? AND tenant_id = ?", session.UserID, session.TenantID).First(&user).Error; err != nil {
		return storeOrNotFound(err, "用户不存在")
	}
	if !user.CheckPassword(currentPass) {
		return apperrors.PermissionDenied("当前密码错误")
	}
	if err := user.SetPassword(newPass); err != nil {
		return apperrors.Store(err)
	}
	return s.updatePassword(&models.User{}, user.ID, user.PasswordHash)
}

// RequestTenantToken 为租户签发单用途令牌（找回密码、确认邮箱）
func (s *AuthService) RequestTenantToken(email, purpose string) error {
	if !knownPurposes[purpose] {
		return apperrors.Validation("不支持的令牌用途: " + purpose)
	}
	tenant, err := s.findTenantByEmail(email)
	if err != nil {
		return err
	}
	return s.sendPurposeToken(purpose, true, tenant.ID, tenant.Email, tenant.TenantName)
}

// RequestUserToken 为用户签发单用途令牌
func (s *AuthService) RequestUserToken(email, tenantName, purpose string) error {
	if !knownPurposes[purpose] {
		return apperrors.Validation("不支持的令牌用途: " + purpose)
	}
	tenant, err := s.findTenantByName(tenantName)
	if err != nil {
		return err
	}
	user, err := s.findUser(tenant.ID, email)
	if err != nil {
		return err
	}
	return s.sendPurposeToken(purpose, false, tenant.ID, user.Email, tenant.TenantName)
}

// ResetPassword 凭resetpassword用途令牌设置新密码并吊销旧令牌
func (s *AuthService) ResetPassword(tokenString, newPass string) error {
	if newPass == "" {
		return apperrors.Validation("新密码不能为空")
	}
	t, err := s.verifyPurposeToken(tokenString, token.PurposeResetPassword)
	if err != nil {
		return err
	}

	if t.IsTenant {
		var tenant models.Tenant
		if err := s.db.Where("id = ? AND email = ?", t.TenantID, t.Email).First(&tenant).Error; err != nil {
			return storeOrNotFound(err, "租户不存在")
		}
		if err := tenant.SetPassword(newPass); err != nil {
			return apperrors.Store(err)
		}
		return s.updatePassword(&models.Tenant{}, tenant.ID, tenant.PasswordHash)
	}

	user, err := s.findUser(t.TenantID, t.Email)
	if err != nil {
		return err
	}
	if err := user.SetPassword(newPass); err != nil {
		return apperrors.Store(err)
	}
	return s.updatePassword(&models.User{}, user.ID, user.PasswordHash)
}

// ConfirmEmail 凭confirmemail用途令牌确认邮箱
func (s *AuthService) ConfirmEmail(tokenString string) error {
	t, err := s.verifyPurposeToken(tokenString, token.PurposeConfirmEmail)
	if err != nil {
		return err
	}
	if t.IsTenant {
		err = s.db.Model(&models.Tenant{}).Where("id = ? AND email = ?", t.TenantID, t.Email).
			Update("is_confirmed", true).Error
	} else {
		err = s.db.Model(&models.User{}).Where("tenant_id = ? AND email = ?", t.TenantID, t.Email).
			Update("is_confirmed", true).Error
	}
	if err != nil {
		return apperrors.Store(err)
	}
	return nil
}

// Logout 登出：推进当前主体的水位线，所有已签发令牌失效
func (s *AuthService) Logout(session *token.LoginSession) error {
	var err error
	now := time.Now().UnixNano()
	if session.IsTenant() {
		err = s.db.Model(&models.Tenant{}).Where("id = ?", session.TenantID).
			Update("token_valid_time", now).Error
	} else {
		err = s.db.Model(&models.User{}).Where("id = ? AND tenant_id = ?", session.UserID, session.TenantID).
			Update("token_valid_time", now).Error
	}
	if err != nil {
		return apperrors.Store(err)
	}
	return nil
}

// ========== 内部 ==========

func (s *AuthService) findTenantByEmail(email string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.Where("email = ?", strings.TrimSpace(strings.ToLower(email))).First(&tenant).Error
	if err != nil {
		return nil, storeOrNotFound(err, "租户不存在")
	}
	return &tenant, nil
}

func (s *AuthService) findTenantByName(tenantName string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.Where("tenant_name = ?", strings.TrimSpace(tenantName)).First(&tenant).Error
	if err != nil {
		return nil, storeOrNotFound(err, "租户不存在")
	}
	return &tenant, nil
}

func (s *AuthService) findUser(tenantID uint, email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("tenant_id = ? AND email = ?", tenantID, strings.TrimSpace(strings.ToLower(email))).
		First(&user).Error
	if err != nil {
		return nil, storeOrNotFound(err, "用户不存在")
	}
	return &user, nil
}

// loadUserClaims 把user_claims行折叠成claim映射。
// "*"整体通配；"controller.action"逐项授权；裸controller按action通配处理
func (s *AuthService) loadUserClaims(userID uint) (map[string][]string, error) {
	var rows []models.UserClaim
	if err := s.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, apperrors.Store(err)
	}
	claims := make(map[string][]string)
	for _, row := range rows {
		claim := strings.ToLower(strings.TrimSpace(row.Claim))
		if claim == "" {
			continue
		}
		if claim == authz.WildcardClaim {
			claims[authz.WildcardClaim] = []string{}
			continue
		}
		parts := strings.SplitN(claim, ".", 2)
		if len(parts) == 2 {
			claims[parts[0]] = append(claims[parts[0]], parts[1])
		} else {
			claims[claim] = append(claims[claim], authz.WildcardClaim)
		}
	}
	return claims, nil
}

func (s *AuthService) sendPurposeToken(purpose string, isTenant bool, tenantID uint, email, tenantName string) error {
	now := time.Now()
	tokenString, err := s.codec.CreatePurposeToken(&token.PurposeToken{
		Purpose:    purpose,
		IsTenant:   isTenant,
		Email:      email,
		TenantName: tenantName,
		TenantID:   tenantID,
		CreateTime: now.UnixNano(),
		ExpireTime: now.Add(s.purposeTTL).UnixNano(),
	})
	if err != nil {
		return err
	}
	return s.mailer.SendPurposeToken(email, purpose, tokenString)
}

func (s *AuthService) verifyPurposeToken(tokenString, purpose string) (*token.PurposeToken, error) {
	t, err := s.codec.VerifyPurposeToken(tokenString, purpose)
	if err != nil {
		return nil, err
	}
	if t.IsExpired() {
		return nil, apperrors.TokenExpired("令牌已过期")
	}
	return t, nil
}

// updatePassword 更新密码哈希并推进水位线
func (s *AuthService) updatePassword(model interface{}, id uint, passwordHash string) error {
	updates := map[string]interface{}{
		"password_hash":    passwordHash,
		"token_valid_time": time.Now().UnixNano(),
	}
	if err := s.db.Model(model).Where("id = ?", id).Updates(updates).Error; err != nil {
		return apperrors.Store(err)
	}
	return nil
}

// checkPrincipal 登录主体的统一校验顺序：锁定、未确认、密码
func checkPrincipal(isLocked, isConfirmed, passwordOK bool) error {
	if isLocked {
		return apperrors.PermissionDenied("账号已被锁定")
	}
	if !isConfirmed {
		return apperrors.PermissionDenied("邮箱尚未确认")
	}
	if !passwordOK {
		return apperrors.PermissionDenied("邮箱或密码错误")
	}
	return nil
}

func storeOrNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(message)
	}
	return apperrors.Store(err)
}
