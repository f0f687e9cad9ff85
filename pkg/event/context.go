package event

import (
	"fmt"
	"time"
)

// Invalid marks a context field that is not known.
const Invalid = -1

// MCData is set in the partition of simulated events.
const MCData = 1 << 16

// Context locates an event in the data taking: partition, run, subrun,
// event number, spill and the unix time stamp of the trigger.
type Context struct {
	Partition int32
	Run       int32
	Subrun    int32
	Event     int32
	Spill     int32
	Timestamp int64
}

func NewContext() Context {
	return Context{
		Partition: Invalid,
		Run:       Invalid,
		Subrun:    Invalid,
		Event:     Invalid,
		Spill:     Invalid,
		Timestamp: Invalid,
	}
}

func NewRunContext(run, subrun, event int32, timestamp int64) Context {
	c := NewContext()
	c.Run = run
	c.Subrun = subrun
	c.Event = event
	c.Timestamp = timestamp
	return c
}

// Valid is true when at least one field is known.
func (c Context) Valid() bool {
	return c != NewContext()
}

func (c Context) IsMC() bool {
	return c.Partition != Invalid && c.Partition&MCData != 0
}

func (c Context) IsDetector() bool {
	return c.Partition != Invalid && c.Partition&MCData == 0
}

// Time returns the trigger time, or the zero time when the time stamp is
// not known.
func (c Context) Time() time.Time {
	if c.Timestamp == Invalid {
		return time.Time{}
	}
	return time.Unix(c.Timestamp, 0).UTC()
}

func field(v int32) string {
	if v == Invalid {
		return "invalid"
	}
	return fmt.Sprintf("%d", v)
}

func (c Context) String() string {
	if !c.Valid() {
		return "context: invalid"
	}
	s := fmt.Sprintf("context: partition %s run %s.%s event %s spill %s",
		field(c.Partition), field(c.Run), field(c.Subrun), field(c.Event), field(c.Spill))
	if c.Timestamp != Invalid {
		s += " time " + c.Time().Format(time.RFC3339)
	}
	if c.IsMC() {
		s += " (MC)"
	}
	return s
}
