package handler

import (
	"github.com/maqsadm/internal/service"
	"gorm.io/gorm"
)

// API 聚合各业务服务，所有 HTTP 处理器挂在其上。
type API struct {
	db           *gorm.DB
	groups       *service.GroupService
	tasks        *service.TaskService
	completions  *service.CompletionService
	aggregator   *service.AggregatorService
	leaderboards *service.LeaderboardService
	chat         *service.ChatService
	journal      *service.JournalService
	assistant    *service.AssistantService
	system       *service.SystemSettingService
	uploadDir    string
	uploadURL    string
}

// NewAPI 基于同一个数据库连接装配全部服务。
func NewAPI(db *gorm.DB, uploadDir, uploadURL string) *API {
	groups := service.NewGroupService(db)
	tasks := service.NewTaskService(db, groups)
	completions := service.NewCompletionService(db, tasks, groups)
	system := service.NewSystemSettingService(db)

	return &API{
		db:           db,
		groups:       groups,
		tasks:        tasks,
		completions:  completions,
		aggregator:   service.NewAggregatorService(db, completions),
		leaderboards: service.NewLeaderboardService(db),
		chat:         service.NewChatService(db, groups),
		journal:      service.NewJournalService(db),
		assistant:    service.NewAssistantService(db, system),
		system:       system,
		uploadDir:    uploadDir,
		uploadURL:    uploadURL,
	}
}

// DB 暴露底层 gorm 连接。
func (a *API) DB() *gorm.DB {
	return a.db
}

// Assistant 暴露助手服务，便于在测试中替换 HTTP 客户端。
func (a *API) Assistant() *service.AssistantService {
	return a.assistant
}

// Aggregator 暴露任务汇总服务，供定时提醒任务复用。
func (a *API) Aggregator() *service.AggregatorService {
	return a.aggregator
}
