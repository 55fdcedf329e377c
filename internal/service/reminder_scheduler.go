package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// ReminderScheduler 周期性触发 ReminderService.SendDue
// 单实例部署下不需要分布式锁，重复触发由“每天最多一次”的记录保证幂等
type ReminderScheduler struct {
	mu        sync.RWMutex
	reminders *ReminderService
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewReminderScheduler 构造调度器，默认每分钟检查一次
func NewReminderScheduler(reminders *ReminderService) *ReminderScheduler {
	return &ReminderScheduler{
		reminders: reminders,
		interval:  60 * time.Second,
	}
}

// WithInterval 调整检查间隔，主要面向测试场景
func (s *ReminderScheduler) WithInterval(d time.Duration) *ReminderScheduler {
	if d > 0 {
		s.interval = d
	}
	return s
}

// Start 启动调度循环
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.reminders.SendDue(time.Now()); err != nil {
					log.Printf("reminder scheduler: %v", err)
				}
			}
		}
	}()
}

// Stop 停止调度并等待循环退出
func (s *ReminderScheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
