package dispatcher

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"syncgate/pkg/apperrors"
	"syncgate/pkg/authz"
	"syncgate/pkg/config"
	"syncgate/pkg/logger"
	"syncgate/pkg/response"
	"syncgate/pkg/token"
)

// Controller 业务控制器接口。
// 按action分派，不认识的action返回nil，由调度器统一回404
type Controller interface {
	Invoke(ctx *Context, action string) *response.Result
}

// auth控制器上无需登录即可访问的操作
var authAnonymousActions = map[string]bool{
	"register":           true,
	"tenantlogin":        true,
	"userlogin":          true,
	"tenantrequesttoken": true,
	"userrequesttoken":   true,
	"resetpassword":      true,
	"confirmemail":       true,
	"ip":                 true,
	"ping":               true,
}

// Dispatcher 请求调度器
// 路由形如 /:controller/:action，控制器在启动时显式注册
type Dispatcher struct {
	cfg         *config.Config
	codec       *token.Codec
	watermarks  WatermarkSource
	controllers map[string]Controller
	anonymous   map[string]bool
}

// New 创建调度器
func New(cfg *config.Config, codec *token.Codec, watermarks WatermarkSource) *Dispatcher {
	anonymous := make(map[string]bool)
	for action := range authAnonymousActions {
		anonymous[authz.AuthControllerName+"."+action] = true
	}
	for _, entry := range cfg.Sync.AllowAnonymousActions {
		anonymous[strings.ToLower(strings.TrimSpace(entry))] = true
	}
	return &Dispatcher{
		cfg:         cfg,
		codec:       codec,
		watermarks:  watermarks,
		controllers: make(map[string]Controller),
		anonymous:   anonymous,
	}
}

// Register 注册控制器，名称统一小写
func (d *Dispatcher) Register(name string, controller Controller) {
	d.controllers[strings.ToLower(name)] = controller
}

// Handle gin入口，处理 /:controller/:action
func (d *Dispatcher) Handle(c *gin.Context) {
	controllerName := strings.ToLower(c.Param("controller"))
	action := strings.ToLower(c.Param("action"))

	// 协议版本检查先于一切：过旧客户端直接410
	if !d.clientVersionOK(c) {
		c.Status(http.StatusGone)
		return
	}

	controller, ok := d.controllers[controllerName]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	ctx := &Context{Gin: c, verbose401: d.cfg.Token.Verbose401}
	if !d.anonymous[controllerName+"."+action] {
		session, err := d.authenticate(c, controllerName, action)
		if err != nil {
			d.writeResult(ctx, response.FromError(err, d.cfg.Token.Verbose401))
			return
		}
		ctx.Session = session
	}

	d.writeResult(ctx, d.invoke(controller, ctx, action))
}

func (d *Dispatcher) clientVersionOK(c *gin.Context) bool {
	minVersion := d.cfg.Sync.MinClientVersion
	if minVersion <= 0 {
		return true
	}
	raw := c.GetHeader(HeaderClientVersion)
	if raw == "" {
		return false
	}
	clientVersion, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}
	return clientVersion >= minVersion
}

// authenticate 令牌校验、水位线检查和权限判定
func (d *Dispatcher) authenticate(c *gin.Context, controllerName, action string) (*token.LoginSession, error) {
	raw := c.GetHeader(HeaderToken)
	if raw == "" {
		return nil, apperrors.InvalidToken("缺少token头")
	}
	session, err := d.codec.VerifySession(raw)
	if err != nil {
		return nil, err
	}
	watermark, err := d.watermarks.TokenValidTime(session.IsTenant(), session.TenantID, session.UserID)
	if err != nil {
		return nil, err
	}
	// 水位线检查：签发时间不早于水位的令牌才有效
	if !(watermark <= session.CreateTime) {
		return nil, apperrors.TokenExpired("令牌已被吊销")
	}
	if !authz.Authorize(session.Claims, controllerName, action) {
		return nil, apperrors.PermissionDenied("无权访问 " + controllerName + "." + action)
	}
	return session, nil
}

// invoke 执行控制器操作，panic统一收敛为500
func (d *Dispatcher) invoke(controller Controller, ctx *Context, action string) (result *response.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("panic", r).Error("控制器执行异常")
			result = response.PlainText("internal server error", http.StatusInternalServerError)
		}
	}()
	result = controller.Invoke(ctx, action)
	if result == nil {
		result = response.Status(http.StatusNotFound)
	}
	return result
}
