package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifegrid/internal/db"
	"github.com/lifegrid/internal/service"
)

// UpsertCheckin 记录一次打卡，同一习惯同一天重复提交为覆盖
func (a *API) UpsertCheckin(c *gin.Context) {
	var payload struct {
		HabitID uint   `json:"habit_id"`
		Date    string `json:"date"` // 2006-01-02，缺省为今天
		Level   int    `json:"level"`
		Note    string `json:"note"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	day := time.Now()
	if strings.TrimSpace(payload.Date) != "" {
		parsed, err := parseDateParam(payload.Date)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的打卡日期")
			return
		}
		day = parsed
	}

	record, err := a.checkins.Upsert(service.CheckinInput{
		HabitID: payload.HabitID,
		Day:     day,
		Level:   payload.Level,
		Note:    payload.Note,
		Source:  "manual",
	})
	if err != nil {
		handleCheckinError(c, err)
		return
	}

	entry, err := a.entries.Get(day)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "读取当日评分失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"completion": completionToPayload(*record),
		"day":        entryToPayload(entry),
	})
}

// DeleteCheckin 删除单条打卡记录
func (a *API) DeleteCheckin(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡记录ID")
		return
	}

	if err := a.checkins.Delete(id); err != nil {
		handleCheckinError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetDay 返回某天的明细：缓存评分 + 各习惯打卡（备注渲染为安全 HTML）
func (a *API) GetDay(c *gin.Context) {
	day, err := parseDateParam(c.Param("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	entry, err := a.entries.Get(day)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "读取当日评分失败")
		return
	}

	completions, err := a.checkins.ListDay(day)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取打卡记录失败")
		return
	}

	items := make([]gin.H, 0, len(completions))
	for _, completion := range completions {
		item := completionToPayload(completion)
		item["habit_name"] = completion.Habit.Name
		if completion.Note != "" {
			item["note_html"] = renderMarkdown(completion.Note)
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"date":        day.Format(dateFormat),
		"day":         entryToPayload(entry),
		"completions": items,
	})
}

// RebuildEntries 从原始打卡记录重建区间内的评分缓存
// 会用当前活跃习惯数刷新历史快照，属于显式的修复操作
func (a *API) RebuildEntries(c *gin.Context) {
	var payload struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	start, err := parseDateParam(payload.Start)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return
	}
	end, err := parseDateParam(payload.End)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的结束日期")
		return
	}

	rebuilt, err := a.entries.RebuildRange(start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "重建评分缓存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rebuilt_days": rebuilt})
}

func completionToPayload(completion db.HabitCompletion) gin.H {
	return gin.H{
		"id":       completion.ID,
		"habit_id": completion.HabitID,
		"date":     completion.Day.Format(dateFormat),
		"level":    completion.Level,
		"note":     completion.Note,
		"source":   completion.Source,
	}
}

func entryToPayload(entry *db.DayEntry) gin.H {
	if entry == nil {
		return gin.H{"checked_in": false, "score": 0}
	}
	return gin.H{
		"date":               entry.Day.Format(dateFormat),
		"score":              entry.Score,
		"credit":             entry.Credit,
		"checked_in":         entry.CheckedIn,
		"completion_count":   entry.CompletionCount,
		"active_habit_count": entry.ActiveHabitCount,
	}
}

func handleCheckinError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitArchived):
		respondError(c, http.StatusBadRequest, "已归档的习惯不能打卡")
	case errors.Is(err, service.ErrInvalidLevel):
		respondError(c, http.StatusBadRequest, "无效的完成档位")
	case errors.Is(err, service.ErrCompletionNotFound):
		respondError(c, http.StatusNotFound, "打卡记录不存在")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
