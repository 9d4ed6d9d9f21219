package usecase

import "time"

type Timer interface {
	Stop() bool
}

// Scheduler arms the conversion debounce timer.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var WallClock Scheduler = wallClock{}
