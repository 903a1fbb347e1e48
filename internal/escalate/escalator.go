package escalate

import (
	"sync"
	"time"
)

// Decision is the outcome of recording one more report against a suspect.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionFire
)

// WindowDisabled turns the escalation check off entirely; WindowUnbounded
// accumulates reports with no time limit. Any positive value is a window in
// minutes starting at the suspect's first open report.
const (
	WindowDisabled  = -1
	WindowUnbounded = 0
)

type counter struct {
	reports     int
	firstReport time.Time
}

// ThresholdEscalator tracks open report counts per suspect and fires once the
// configured limit is reached. Firing clears the suspect's counter, so the
// next report starts a fresh window instead of re-firing immediately.
type ThresholdEscalator struct {
	mutex    sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

func NewThresholdEscalator() *ThresholdEscalator {
	return &ThresholdEscalator{
		counters: map[string]*counter{},
		now:      time.Now,
	}
}

func (e *ThresholdEscalator) RecordAndCheck(suspectID string, limit, windowMinutes int) Decision {
	if windowMinutes == WindowDisabled || limit <= 0 {
		return DecisionNone
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	now := e.now()
	c, ok := e.counters[suspectID]
	if !ok {
		c = &counter{firstReport: now}
		e.counters[suspectID] = c
	}

	if windowMinutes > 0 && now.After(c.firstReport.Add(time.Duration(windowMinutes)*time.Minute)) {
		c.reports = 1
		c.firstReport = now
		if c.reports >= limit {
			delete(e.counters, suspectID)
			return DecisionFire
		}
		return DecisionNone
	}

	c.reports++
	if c.reports >= limit {
		delete(e.counters, suspectID)
		return DecisionFire
	}
	return DecisionNone
}
