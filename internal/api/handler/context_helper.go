package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mosa54/control-center/pkg/response"
)

// employeeIDMaxLen 与 checkins.employee_id 列宽一致
const employeeIDMaxLen = 64

// MustGetEmployeeID 从路径参数中提取 employee_id。
// 为空或超长时写入 400 响应并返回 false，调用方应直接 return。
func MustGetEmployeeID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("employee_id"))
	if id == "" || len(id) > employeeIDMaxLen {
		response.BadRequest(c, response.CodeValidation, "employee_id 无效")
		return "", false
	}
	return id, true
}
