package service

import (
	"fmt"
	"time"

	"github.com/maqsadm/internal/schedule"
)

// parseDay 解析 yyyy-MM-dd 字符串为本地时区的日历日。
func parseDay(raw string) (*time.Time, error) {
	t, err := time.ParseInLocation(schedule.DateFormat, raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", schedule.ErrInvalidSchedule, raw)
	}
	return &t, nil
}
