package dispatcher

import (
	"encoding/gob"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"syncgate/pkg/apperrors"
	"syncgate/pkg/response"
	"syncgate/pkg/token"
)

// 协议相关的请求头
const (
	HeaderToken         = "token"
	HeaderRequest       = "request"
	HeaderResponse      = "response"
	HeaderClientVersion = "client-version"
)

// 请求体和响应体的编码方式
const (
	EncodingJSON = "json"
	EncodingGob  = "gob"
)

// Context 一次调度的上下文，匿名请求Session为nil
type Context struct {
	Gin     *gin.Context
	Session *token.LoginSession

	verbose401 bool
}

// Error 把业务错误转成响应结果，401是否带原因跟随全局配置
func (c *Context) Error(err error) *response.Result {
	return response.FromError(err, c.verbose401)
}

func (c *Context) requestEncoding() string {
	if strings.EqualFold(c.Gin.GetHeader(HeaderRequest), EncodingGob) {
		return EncodingGob
	}
	return EncodingJSON
}

func (c *Context) responseEncoding() string {
	if strings.EqualFold(c.Gin.GetHeader(HeaderResponse), EncodingGob) {
		return EncodingGob
	}
	return EncodingJSON
}

// BindBody 按request头指定的编码解析请求体
func (c *Context) BindBody(out interface{}) error {
	if c.requestEncoding() == EncodingGob {
		if err := gob.NewDecoder(c.Gin.Request.Body).Decode(out); err != nil {
			return apperrors.Validation("请求体解析失败: " + err.Error())
		}
		return nil
	}
	if err := c.Gin.ShouldBindJSON(out); err != nil {
		if validationErr, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(validationErr))
			for _, fieldErr := range validationErr {
				fields = append(fields, fieldErr.Field())
			}
			return apperrors.Validation("字段验证失败: " + strings.Join(fields, ", "))
		}
		return apperrors.Validation("请求体解析失败: " + err.Error())
	}
	return nil
}

// Query 取查询参数
func (c *Context) Query(key string) string {
	return c.Gin.Query(key)
}

// ClientIP 客户端地址
func (c *Context) ClientIP() string {
	return c.Gin.ClientIP()
}
