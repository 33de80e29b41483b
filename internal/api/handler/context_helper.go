package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bukulele/beontrack-portal-sub001/pkg/response"
)

// MustGetUUIDParam 从路径参数中提取 UUID。
// 参数缺失或格式错误时写入 400 响应并返回 false，调用方应直接 return。
func MustGetUUIDParam(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if v == "" {
		response.BadRequest(c, 10001, name+" 不能为空")
		return "", false
	}
	if _, err := uuid.Parse(v); err != nil {
		response.BadRequest(c, 10001, name+" 格式错误")
		return "", false
	}
	return v, true
}
