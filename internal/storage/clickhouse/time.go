package clickhouse

import "time"

func msToTime(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}
