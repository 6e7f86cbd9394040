// Package util holds id and date helpers shared by the catalog writers.
package util

import (
	"strconv"
	"sync/atomic"
	"time"
)

var lastTimeID atomic.Int64

// NewTimeID returns the current unix time in milliseconds as a string, bumped
// past the previously issued value so ids stay unique within the process.
func NewTimeID(now time.Time) string {
	candidate := now.UnixMilli()
	for {
		last := lastTimeID.Load()
		next := candidate
		if next <= last {
			next = last + 1
		}
		if lastTimeID.CompareAndSwap(last, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}

// Today formats now as a calendar date (YYYY-MM-DD).
func Today(now time.Time) string {
	return now.Format("2006-01-02")
}
