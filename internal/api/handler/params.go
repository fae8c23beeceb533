package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/pkg/response"
)

// parseID 解析路径参数 :id，失败时已写入响应
func parseID(c *gin.Context) (int64, bool) {
	return parseIDParam(c, "id")
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的ID")
		return 0, false
	}
	return id, true
}
