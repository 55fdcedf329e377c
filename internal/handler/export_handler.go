package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Export 导出完整历史，支持 json 与 csv 两种格式
func (a *API) Export(c *gin.Context) {
	now := time.Now()
	filename := fmt.Sprintf("lifegrid-export-%s", now.Format("20060102"))

	switch c.DefaultQuery("format", "json") {
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		if err := a.exports.WriteCSV(c.Writer, now); err != nil {
			respondError(c, http.StatusInternalServerError, "导出失败")
		}
	case "json":
		payload, err := a.exports.ExportAll(now)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "导出失败")
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", filename))
		c.JSON(http.StatusOK, payload)
	default:
		respondError(c, http.StatusBadRequest, "不支持的导出格式")
	}
}
