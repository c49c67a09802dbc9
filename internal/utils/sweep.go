package utils

import "time"

// Sweep calls fn with now() every interval until done is closed. It blocks,
// so callers run it in its own goroutine.
func Sweep(done <-chan struct{}, interval time.Duration, now func() time.Time, fn func(time.Time)) {
	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			fn(now())
		}
	}
}
