package timedataset

import (
	"time"
)

// TimeSlice is an ordered slice of row timestamps
type TimeSlice []time.Time

// StartTime returns the first timestamp or the zero time if empty
func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

// EndTime returns the last timestamp or the zero time if empty
func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}
	return t[len(t)-1]
}

// EstimateFreq returns the most common gap between consecutive timestamps. Ties resolve to the
// smaller gap.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		if delta <= 0 {
			continue
		}
		frequencies[delta] += 1
	}
	if len(frequencies) == 0 {
		return 0, ErrCannotInferFreq
	}

	var maxCnt int
	var maxDelta time.Duration
	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// Monotonic reports whether timestamps are strictly increasing
func (t TimeSlice) Monotonic() bool {
	for i := 1; i < len(t); i++ {
		if !t[i].After(t[i-1]) {
			return false
		}
	}
	return true
}
