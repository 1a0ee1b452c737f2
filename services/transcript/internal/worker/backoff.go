package worker

import "time"

func backoffDelay(numDelivered uint64) time.Duration {
	// 1st failure -> 1s, 2nd -> 2s, 3rd -> 4s ... capped
	attempt := min(max(int(numDelivered), 1), 7)
	sec := min(1<<(attempt-1), 60)
	return time.Duration(sec) * time.Second
}
