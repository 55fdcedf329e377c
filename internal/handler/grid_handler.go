package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifegrid/internal/score"
)

// 网格默认展示尾随一年
const gridTrailDays = 364

type gridDay struct {
	Date      string `json:"date"`
	Score     int    `json:"score"`
	CheckedIn bool   `json:"checked_in"`
	Class     string `json:"class"`
	Muted     bool   `json:"muted"`
	Tooltip   string `json:"tooltip"`
}

type gridWeek struct {
	MonthLabel string    `json:"month_label,omitempty"`
	Days       []gridDay `json:"days"`
}

type gridRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type gridSummary struct {
	CheckedInDays int `json:"checked_in_days"`
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

type gridPayload struct {
	Range       gridRange   `json:"range"`
	Weeks       []gridWeek  `json:"weeks"`
	Summary     gridSummary `json:"summary"`
	GeneratedAt string      `json:"generated_at"`
}

// GetGrid 返回贡献网格数据：按周对齐的逐日评分档位与着色
func (a *API) GetGrid(c *gin.Context) {
	now := time.Now().In(time.Local)
	end := score.Day(now)
	start := end.AddDate(0, 0, -gridTrailDays)

	if raw := c.Query("start"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的开始日期")
			return
		}
		start = score.Day(parsed)
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的结束日期")
			return
		}
		end = score.Day(parsed)
	}
	if end.Before(start) {
		respondError(c, http.StatusBadRequest, "结束日期早于开始日期")
		return
	}

	days, err := a.stats.ScoredRange(start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取网格数据失败")
		return
	}

	summary, err := a.stats.Summary(end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算统计信息失败")
		return
	}

	payload := buildGridPayload(days, start, end, now)
	payload.Summary = gridSummary{
		CheckedInDays: summary.CheckedInDays,
		CurrentStreak: summary.CurrentStreak,
		LongestStreak: summary.LongestStreak,
	}

	c.JSON(http.StatusOK, payload)
}

func buildGridPayload(days []score.ScoredDay, start, end, generatedAt time.Time) gridPayload {
	byDate := make(map[string]score.ScoredDay, len(days))
	for _, day := range days {
		byDate[day.Date.Format(dateFormat)] = day
	}

	alignedStart := start
	for alignedStart.Weekday() != time.Monday {
		alignedStart = alignedStart.AddDate(0, 0, -1)
	}
	alignedEnd := end
	for alignedEnd.Weekday() != time.Sunday {
		alignedEnd = alignedEnd.AddDate(0, 0, 1)
	}

	weeks := make([]gridWeek, 0, 60)
	lastMonth := 0

	for weekStart := alignedStart; !weekStart.After(alignedEnd); weekStart = weekStart.AddDate(0, 0, 7) {
		week := gridWeek{Days: make([]gridDay, 0, 7)}
		weekEnd := weekStart.AddDate(0, 0, 6)
		label := ""

		for day := weekStart; !day.After(weekEnd); day = day.AddDate(0, 0, 1) {
			dateKey := day.Format(dateFormat)
			scored, exists := byDate[dateKey]
			muted := day.Before(start) || day.After(end)

			tooltip := fmt.Sprintf("%s：未打卡", dateKey)
			if exists && scored.CheckedIn {
				tooltip = fmt.Sprintf("%s：评分 %d/4", dateKey, scored.Score)
			}

			week.Days = append(week.Days, gridDay{
				Date:      dateKey,
				Score:     scored.Score,
				CheckedIn: exists && scored.CheckedIn,
				Class:     colorClassForLevel(scored.Score, exists && scored.CheckedIn),
				Muted:     muted,
				Tooltip:   tooltip,
			})

			if !muted && label == "" {
				month := int(day.Month())
				if month != lastMonth {
					label = fmt.Sprintf("%d月", month)
					lastMonth = month
				}
			}
		}

		week.MonthLabel = label
		weeks = append(weeks, week)
	}

	return gridPayload{
		Range: gridRange{
			Start: start.Format(dateFormat),
			End:   end.Format(dateFormat),
		},
		Weeks:       weeks,
		GeneratedAt: generatedAt.Format(time.RFC3339),
	}
}

// colorClassForLevel 将 0..4 的评分档位映射到固定的五级色阶
func colorClassForLevel(level int, checkedIn bool) string {
	if !checkedIn || level <= 0 {
		return "grid-level-0"
	}
	switch level {
	case 1:
		return "grid-level-1"
	case 2:
		return "grid-level-2"
	case 3:
		return "grid-level-3"
	default:
		return "grid-level-4"
	}
}
