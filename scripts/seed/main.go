package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/lifegrid/internal/config"
	"github.com/lifegrid/internal/db"
	"github.com/lifegrid/internal/service"
)

// 演示数据生成器：创建默认账号、一组习惯和最近 120 天的打卡历史
func main() {
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成演示数据...")

	if err := db.EnsureUser("admin", "admin123"); err != nil {
		log.Fatal("创建用户失败:", err)
	}

	habits := seedHabits()
	seedCheckins(habits)

	fmt.Println("演示数据生成完成！")
	fmt.Println("用户: admin (密码: admin123)")
	fmt.Printf("习惯: %d 个，打卡历史: 最近 120 天\n", len(habits))
}

func seedHabits() []*db.Habit {
	svc := service.NewHabitService(db.DB)

	var count int64
	db.DB.Model(&db.Habit{}).Count(&count)
	if count > 0 {
		fmt.Println("习惯已存在，跳过创建")
		var existing []db.Habit
		db.DB.Find(&existing)
		habits := make([]*db.Habit, 0, len(existing))
		for i := range existing {
			habits = append(habits, &existing[i])
		}
		return habits
	}

	inputs := []service.HabitInput{
		{Name: "晨跑", Description: "每天 5 公里", Icon: "run", Color: "#34d399", SortOrder: 0},
		{Name: "阅读", Description: "至少 30 分钟", Icon: "book", Color: "#60a5fa", SortOrder: 1},
		{Name: "冥想", Description: "10 分钟正念", Icon: "lotus", Color: "#a78bfa", SortOrder: 2},
		{Name: "写代码", Description: "个人项目推进", Icon: "code", Color: "#f472b6", SortOrder: 3},
		{Name: "早睡", Description: "23 点前上床", Icon: "moon", Color: "#fbbf24", SortOrder: 4},
	}

	habits := make([]*db.Habit, 0, len(inputs))
	for _, input := range inputs {
		habit, err := svc.Create(input)
		if err != nil {
			log.Fatal("创建习惯失败:", err)
		}
		habits = append(habits, habit)
	}

	fmt.Println("✅ 演示习惯创建完成")
	return habits
}

func seedCheckins(habits []*db.Habit) {
	entries := service.NewEntryService(db.DB)
	checkins := service.NewCheckinService(db.DB, entries)

	// 固定随机种子，重复执行得到同样的历史
	rng := rand.New(rand.NewSource(42))
	today := time.Now()

	for offset := 120; offset >= 0; offset-- {
		day := today.AddDate(0, 0, -offset)

		// 大约每 9 天留一个空档，让连胜有断点
		if offset%9 == 3 {
			continue
		}

		for _, habit := range habits {
			roll := rng.Float64()
			level := 2
			switch {
			case roll < 0.15:
				continue // 当天没做这个习惯
			case roll < 0.30:
				level = 0
			case roll < 0.55:
				level = 1
			}

			if _, err := checkins.Upsert(service.CheckinInput{
				HabitID: habit.ID,
				Day:     day,
				Level:   level,
				Source:  "seed",
			}); err != nil {
				log.Printf("打卡失败 %s: %v", day.Format("2006-01-02"), err)
			}
		}
	}

	fmt.Println("✅ 打卡历史生成完成")
}
