package dispatcher

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"net/http"

	"syncgate/pkg/logger"
	"syncgate/pkg/response"
)

// writeResult 按response头选择的编码写出操作结果
func (d *Dispatcher) writeResult(ctx *Context, result *response.Result) {
	c := ctx.Gin
	switch result.Kind {
	case response.KindStatus:
		c.Status(result.StatusCode)
	case response.KindPlainText:
		c.String(result.StatusCode, "%v", result.Value)
	case response.KindStream:
		c.Header("Content-Type", result.ContentType)
		c.Status(result.StatusCode)
		if _, err := io.Copy(c.Writer, result.Reader); err != nil {
			logger.GetLogger().WithError(err).Warn("写出流式响应失败")
		}
	case response.KindFile:
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
		c.Header("Content-Type", result.ContentType)
		c.Status(result.StatusCode)
		if _, err := io.Copy(c.Writer, result.Reader); err != nil {
			logger.GetLogger().WithError(err).Warn("写出文件响应失败")
		}
	case response.KindObject:
		if result.StatusCode != http.StatusOK {
			c.String(result.StatusCode, "%v", result.Value)
			return
		}
		if ctx.responseEncoding() == EncodingGob {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(result.Value); err != nil {
				logger.GetLogger().WithError(err).Error("gob编码响应失败")
				c.String(http.StatusInternalServerError, "internal server error")
				return
			}
			c.Data(http.StatusOK, "application/octet-stream", buf.Bytes())
			return
		}
		c.JSON(http.StatusOK, result.Value)
	default:
		c.Status(result.StatusCode)
	}
}
