package service

import (
	"time"

	"camrent-backend/internal/utils"
)

// Clock supplies the current instant and the location that decides which
// calendar day it is.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Now: time.Now, Location: loc}
}

// Today is local midnight of the current day.
func (c Clock) Today() time.Time {
	return utils.StartOfDay(c.Now().In(c.Location))
}
