package schedule

import (
	"testing"
	"time"
)

func TestCompletedOn(t *testing.T) {
	t1 := TaskRef{Kind: TaskKindPersonal, ID: 1}
	t2 := TaskRef{Kind: TaskKindPersonal, ID: 2}
	history := []Record{{Task: t1, Date: date(2024, time.March, 4)}}

	if !CompletedOn(history, t1, date(2024, time.March, 4)) {
		t.Fatal("expected completion on recorded day")
	}
	if CompletedOn(history, t1, date(2024, time.March, 5)) {
		t.Fatal("expected no completion on other day")
	}
	if CompletedOn(history, t2, date(2024, time.March, 4)) {
		t.Fatal("expected no completion for other task")
	}

	// 群组与个人任务即使 ID 相同也互不干扰
	group := TaskRef{Kind: TaskKindGroup, ID: 1}
	if CompletedOn(history, group, date(2024, time.March, 4)) {
		t.Fatal("expected task kinds to be distinguished")
	}
}

func TestStatusOnPolicy(t *testing.T) {
	task := TaskRef{Kind: TaskKindGroup, ID: 7}
	s := Schedule{Kind: KindRecurring, Days: []time.Weekday{time.Monday, time.Wednesday}}

	monday := date(2024, time.March, 4)
	wednesday := date(2024, time.March, 6)
	nextMonday := date(2024, time.March, 11)
	tuesday := date(2024, time.March, 5)

	history := []Record{{Task: task, Date: monday}}
	today := wednesday

	if got := StatusOn(s, history, task, monday, today); got != StatusDone {
		t.Fatalf("completed past occurrence: got %s", got)
	}
	// 过去到期且无记录 => 严格判为错过
	prevWednesday := date(2024, time.February, 28)
	if got := StatusOn(s, history, task, prevWednesday, today); got != StatusMissed {
		t.Fatalf("past unrecorded occurrence: got %s", got)
	}
	// 今天到期未完成 => 待办
	if got := StatusOn(s, history, task, wednesday, today); got != StatusPending {
		t.Fatalf("today unrecorded occurrence: got %s", got)
	}
	// 未来到期 => 待办
	if got := StatusOn(s, history, task, nextMonday, today); got != StatusPending {
		t.Fatalf("future occurrence: got %s", got)
	}
	// 不到期的日子 => 空闲
	if got := StatusOn(s, history, task, tuesday, today); got != StatusFree {
		t.Fatalf("unscheduled day: got %s", got)
	}
}
