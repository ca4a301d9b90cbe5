package controllers

import (
	"net/http"

	"syncgate/internal/dispatcher"
	"syncgate/internal/services"
	"syncgate/pkg/response"
)

type registerRequest struct {
	Email      string `json:"email" binding:"required,email"`
	TenantName string `json:"tenant_name" binding:"required"`
}

type tenantLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userLoginRequest struct {
	TenantName string `json:"tenant_name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
}

type lockUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	IsLocked bool   `json:"is_locked"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type requestTokenRequest struct {
	Email      string `json:"email" binding:"required,email"`
	TenantName string `json:"tenant_name"`
	Purpose    string `json:"purpose" binding:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type confirmEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// AuthController 认证控制器：注册、登录、密码和令牌生命周期
type AuthController struct {
	auth *services.AuthService
}

// NewAuthController 创建认证控制器
func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Invoke 按action分派
func (ct *AuthController) Invoke(ctx *dispatcher.Context, action string) *response.Result {
	switch action {
	case "register":
		var req registerRequest
		if err := ctx.BindBody(&req); err != nil {
			return ctx.Error(err)
		}
		if err := ct.auth.Register(req.Email, req.TenantName); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "tenantlogin":
		var req tenantLoginRequest
		if err := ctx.BindBody(&req); err != nil {
			return ctx.Error(err)
		}
		tokenString, err := ct.auth.TenantLogin(req.Email, req.Password)
		if err != nil {
			return ctx.Error(err)
		}
		return response.Object(tokenString)
	case "userlogin":
		var req userLoginRequest
		if err := ctx.BindBody(&req); err != nil {
			return ctx.Error(err)
		}
		tokenString, err := ct.auth.UserLogin(req.TenantName, req.Email, req.Password)
		if err != nil {
			return ctx.Error(err)
		}
		return response.Object(tokenString)
	case "lockuser":
		var req lockUserRequest
		if err := ctx.BindBody(&req); err != nil {
			return ctx.Error(err)
		}
		if err := ct.auth.LockUser(ctx.Session, req.Email, req.IsLocked); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "changepassword":
		var req changePasswordRequest
		if err := ctx.BindBody(&req); err != nil {
			return ctx.Error(err)
		}
		if err := ct.auth.ChangePassword(ctx.Session, req.CurrentPassword, req.NewPassword); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "tenantrequesttoken":
		var req requestTokenRequest
		if err := ctx.BindBody(&req); err != nil {
			return ctx.Error(err)
		}
		if err := ct.auth.RequestTenantToken(req.Email, req.Purpose); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "userrequesttoken":
		var req requestTokenRequest
		if err := ctx.BindBody(&req); err != nil {
			return ctx.Error(err)
		}
		if err := ct.auth.RequestUserToken(req.Email, req.TenantName, req.Purpose); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "resetpassword":
		var req resetPasswordRequest
		if err := ctx.BindBody(&req); err != nil {
			return ctx.Error(err)
		}
		if err := ct.auth.ResetPassword(req.Token, req.NewPassword); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "confirmemail":
		var req confirmEmailRequest
		if err := ctx.BindBody(&req); err != nil {
			return ctx.Error(err)
		}
		if err := ct.auth.ConfirmEmail(req.Token); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "logout":
		if err := ct.auth.Logout(ctx.Session); err != nil {
			return ctx.Error(err)
		}
		return response.OK()
	case "ip":
		return response.PlainText(ctx.ClientIP(), http.StatusOK)
	case "ping":
		return response.OK()
	default:
		return nil
	}
}
