package main

import (
	"log"
	"time"

	"github.com/maqsadm/internal/config"
	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/handler"
	"github.com/maqsadm/internal/router"
	"github.com/maqsadm/internal/schedule"
	"github.com/maqsadm/internal/service"
)

func main() {
	cfg := config.Load()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	api := handler.NewAPI(db.DB, cfg.UploadDir, cfg.UploadURLPath)

	// 每日摘要与例会提醒定时任务
	reminders := service.NewReminderService(db.DB, api.Aggregator())
	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleDaily(cfg.DigestTime, func() {
		today := schedule.Truncate(time.Now())

		digests, err := reminders.DailyDigests(today)
		if err != nil {
			log.Printf("daily digests failed: %v", err)
		}
		for _, digest := range digests {
			log.Printf("[digest] %s: %s", digest.Username, digest.Text)
		}

		meetings, err := reminders.MeetingReminders(today)
		if err != nil {
			log.Printf("meeting reminders failed: %v", err)
		}
		for _, reminder := range meetings {
			log.Printf("[meeting] group %d: %s", reminder.GroupID, reminder.Text)
		}
	}); err != nil {
		log.Fatalf("failed to schedule daily digest: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(cfg, api)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
