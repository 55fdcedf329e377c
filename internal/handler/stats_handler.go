package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifegrid/internal/service"
)

// GetStats 返回统计摘要：今日评分、连胜与滚动平均
func (a *API) GetStats(c *gin.Context) {
	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的日期")
			return
		}
		asOf = parsed
	}

	summary, err := a.stats.Summary(asOf)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算统计信息失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": serializeSummary(summary)})
}

// GetWidget 为小组件提供免会话数据，凭 token 鉴权
func (a *API) GetWidget(c *gin.Context) {
	token := c.Query("token")
	settings, err := a.settings.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "读取设置失败")
		return
	}
	if settings.WidgetToken == "" || token != settings.WidgetToken {
		respondError(c, http.StatusUnauthorized, "无效的小组件令牌")
		return
	}

	payload, err := a.stats.Widget(time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取小组件数据失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generated_at":   payload.GeneratedAt.Format(time.RFC3339),
		"as_of":          payload.AsOf.Format(dateFormat),
		"today_score":    payload.TodayScore,
		"current_streak": payload.CurrentStreak,
		"longest_streak": payload.LongestStreak,
		"days":           payload.Days,
	})
}

func serializeSummary(summary *service.StatsSummary) gin.H {
	return gin.H{
		"as_of":            summary.AsOf.Format(dateFormat),
		"today_score":      summary.TodayScore,
		"today_checked_in": summary.TodayCheckedIn,
		"current_streak":   summary.CurrentStreak,
		"longest_streak":   summary.LongestStreak,
		"week_average":     summary.WeekAverage,
		"month_average":    summary.MonthAverage,
		"checked_in_days":  summary.CheckedInDays,
	}
}
