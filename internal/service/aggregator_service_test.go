package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/schedule"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAggregatorTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:aggregator-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{}, &db.Group{}, &db.GroupMember{},
		&db.GroupTask{}, &db.PersonalTask{},
		&db.TaskCompletion{}, &db.UserTaskSchedule{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

type aggregatorFixture struct {
	groups      *GroupService
	tasks       *TaskService
	completions *CompletionService
	aggregator  *AggregatorService
}

func newAggregatorFixture(gdb *gorm.DB) aggregatorFixture {
	groups := NewGroupService(gdb)
	tasks := NewTaskService(gdb, groups)
	completions := NewCompletionService(gdb, tasks, groups)
	return aggregatorFixture{
		groups:      groups,
		tasks:       tasks,
		completions: completions,
		aggregator:  NewAggregatorService(gdb, completions),
	}
}

// 2024-03-04 是星期一
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)

func TestAggregator_TodayMergesGroupAndPersonal(t *testing.T) {
	gdb := setupAggregatorTestDB(t)
	f := newAggregatorFixture(gdb)
	user := createTestUser(t, gdb, "alice")

	group, err := f.groups.Create(user.ID, GroupInput{Name: "晨跑团"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	groupTask, err := f.tasks.CreateGroupTask(user.ID, group.ID, TaskInput{
		Title:        "晨跑",
		Coins:        2,
		ScheduleKind: "recurring",
		Days:         []string{"Monday", "Wednesday"},
	})
	if err != nil {
		t.Fatalf("create group task: %v", err)
	}
	if _, err := f.tasks.CreatePersonalTask(user.ID, recurringInput("阅读", "Monday")); err != nil {
		t.Fatalf("create personal task: %v", err)
	}
	// 周二任务当天不应出现
	if _, err := f.tasks.CreatePersonalTask(user.ID, recurringInput("游泳", "Tuesday")); err != nil {
		t.Fatalf("create off-day task: %v", err)
	}

	view, err := f.aggregator.Today(user.ID, monday)
	if err != nil {
		t.Fatalf("today view: %v", err)
	}
	if view.Date != "2024-03-04" {
		t.Fatalf("unexpected date %s", view.Date)
	}
	if len(view.Active) != 2 || len(view.Completed) != 0 {
		t.Fatalf("expected 2 active / 0 completed, got %d/%d", len(view.Active), len(view.Completed))
	}

	if _, err := f.completions.Complete(user.ID, schedule.TaskKindGroup, groupTask.ID, monday, ""); err != nil {
		t.Fatalf("complete group task: %v", err)
	}

	view, err = f.aggregator.Today(user.ID, monday)
	if err != nil {
		t.Fatalf("today view after completion: %v", err)
	}
	if len(view.Active) != 1 || len(view.Completed) != 1 {
		t.Fatalf("expected 1 active / 1 completed, got %d/%d", len(view.Active), len(view.Completed))
	}
	if view.Completed[0].Ref.ID != groupTask.ID || !view.Completed[0].CompletedToday {
		t.Fatalf("unexpected completed entry: %+v", view.Completed[0])
	}
	if view.Completed[0].GroupName != "晨跑团" {
		t.Fatalf("expected group name attached, got %q", view.Completed[0].GroupName)
	}
}

func TestAggregator_DateRangeTaskActiveInsideBoundsOnly(t *testing.T) {
	gdb := setupAggregatorTestDB(t)
	f := newAggregatorFixture(gdb)
	user := createTestUser(t, gdb, "alice")

	if _, err := f.tasks.CreatePersonalTask(user.ID, TaskInput{
		Title:        "冲刺复习",
		ScheduleKind: "date_range",
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-03",
	}); err != nil {
		t.Fatalf("create range task: %v", err)
	}

	cases := []struct {
		day    time.Time
		active bool
	}{
		{time.Date(2023, 12, 31, 0, 0, 0, 0, time.Local), false},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), true},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local), true},
		{time.Date(2024, 1, 3, 0, 0, 0, 0, time.Local), true},
		{time.Date(2024, 1, 4, 0, 0, 0, 0, time.Local), false},
	}
	for _, tc := range cases {
		view, err := f.aggregator.Today(user.ID, tc.day)
		if err != nil {
			t.Fatalf("today %s: %v", tc.day.Format("2006-01-02"), err)
		}
		if got := len(view.Active) == 1; got != tc.active {
			t.Fatalf("%s: expected active=%v", tc.day.Format("2006-01-02"), tc.active)
		}
	}
}

func TestAggregator_SubscriptionNarrowsRecurringTask(t *testing.T) {
	gdb := setupAggregatorTestDB(t)
	f := newAggregatorFixture(gdb)
	owner := createTestUser(t, gdb, "owner")
	member := createTestUser(t, gdb, "member")

	group, err := f.groups.Create(owner.ID, GroupInput{Name: "健身团"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := f.groups.JoinByInvite(member.ID, group.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}
	task, err := f.tasks.CreateGroupTask(owner.ID, group.ID, recurringInput("撸铁", "Monday", "Wednesday", "Friday"))
	if err != nil {
		t.Fatalf("create group task: %v", err)
	}

	// member 只订阅周五；owner 未订阅，保留任务原始日程
	if _, err := f.tasks.Subscribe(member.ID, task.ID, []string{"Friday"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	memberView, err := f.aggregator.Today(member.ID, monday)
	if err != nil {
		t.Fatalf("member today: %v", err)
	}
	if len(memberView.Active) != 0 {
		t.Fatalf("expected narrowed task absent on Monday, got %d", len(memberView.Active))
	}

	friday := monday.AddDate(0, 0, 4)
	memberView, err = f.aggregator.Today(member.ID, friday)
	if err != nil {
		t.Fatalf("member friday: %v", err)
	}
	if len(memberView.Active) != 1 {
		t.Fatalf("expected narrowed task active on Friday, got %d", len(memberView.Active))
	}

	ownerView, err := f.aggregator.Today(owner.ID, monday)
	if err != nil {
		t.Fatalf("owner today: %v", err)
	}
	if len(ownerView.Active) != 1 {
		t.Fatalf("expected unnarrowed task active on Monday for owner, got %d", len(ownerView.Active))
	}
}

func TestAggregator_WeekGridStatuses(t *testing.T) {
	gdb := setupAggregatorTestDB(t)
	f := newAggregatorFixture(gdb)
	user := createTestUser(t, gdb, "alice")

	task, err := f.tasks.CreatePersonalTask(user.ID, recurringInput("晨跑", "Monday", "Wednesday"))
	if err != nil {
		t.Fatalf("create personal task: %v", err)
	}

	// 周一完成，周三（过去）未完成，今天是周四
	if _, err := f.completions.Complete(user.ID, schedule.TaskKindPersonal, task.ID, monday, ""); err != nil {
		t.Fatalf("complete monday: %v", err)
	}
	thursday := monday.AddDate(0, 0, 3)

	grid, err := f.aggregator.Week(user.ID, monday, thursday)
	if err != nil {
		t.Fatalf("week grid: %v", err)
	}
	if len(grid.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(grid.Rows))
	}
	cells := grid.Rows[0].Cells
	if len(cells) != 7 {
		t.Fatalf("expected 7 cells, got %d", len(cells))
	}

	want := []schedule.Status{
		schedule.StatusDone,   // 周一：已完成
		schedule.StatusFree,   // 周二：不到期
		schedule.StatusMissed, // 周三：过去且未完成
		schedule.StatusFree,   // 周四：不到期
		schedule.StatusFree,   // 周五
		schedule.StatusFree,   // 周六
		schedule.StatusFree,   // 周日
	}
	for i, status := range want {
		if cells[i].Status != status {
			t.Fatalf("cell %d (%s): expected %s, got %s", i, cells[i].Date, status, cells[i].Status)
		}
	}

	// 下周一尚未到来：未来的到期日应是 pending
	nextMonday := monday.AddDate(0, 0, 7)
	grid, err = f.aggregator.Week(user.ID, nextMonday, thursday)
	if err != nil {
		t.Fatalf("next week grid: %v", err)
	}
	if got := grid.Rows[0].Cells[0].Status; got != schedule.StatusPending {
		t.Fatalf("expected pending for future due day, got %s", got)
	}
}

func TestAggregator_SkipsTasksOfVanishedGroups(t *testing.T) {
	gdb := setupAggregatorTestDB(t)
	f := newAggregatorFixture(gdb)
	user := createTestUser(t, gdb, "alice")

	group, err := f.groups.Create(user.ID, GroupInput{Name: "临时小组"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := f.tasks.CreateGroupTask(user.ID, group.ID, recurringInput("打卡", "Monday")); err != nil {
		t.Fatalf("create group task: %v", err)
	}

	// 群组被直接删除而成员关系残留
	if err := gdb.Delete(&db.Group{}, group.ID).Error; err != nil {
		t.Fatalf("delete group: %v", err)
	}

	tasks, err := f.aggregator.ScheduledTasksForUser(user.ID, monday)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected orphan task skipped, got %d", len(tasks))
	}
}

func TestAggregator_UnknownUser(t *testing.T) {
	gdb := setupAggregatorTestDB(t)
	f := newAggregatorFixture(gdb)

	if _, err := f.aggregator.Today(4242, monday); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
