package seiretsu

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Scheduler distributes independent units of work. Run calls work once for
// every unit in [0, units) and blocks until all of them returned. Units
// operate on disjoint memory, so they may run in any order and in parallel.
type Scheduler interface {
	Run(units int, work func(unit int)) error
}

// groupScheduler fans units out over an errgroup bounded to limit
// goroutines. A panicking unit is reported as an error instead of tearing
// down the process.
type groupScheduler struct {
	limit int
}

// NewScheduler returns the default Scheduler, running at most limit units
// concurrently.
func NewScheduler(limit int) Scheduler {
	return groupScheduler{limit: max(limit, 1)}
}

func (s groupScheduler) Run(units int, work func(unit int)) error {
	switch {
	case units <= 0:
		return nil
	case units == 1 || s.limit == 1:
		for u := range units {
			if err := runUnit(work, u); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(s.limit)
	for u := range units {
		g.Go(func() error {
			return runUnit(work, u)
		})
	}
	return g.Wait()
}

func runUnit(work func(int), u int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("seiretsu: job unit %d panicked: %v", u, r)
		}
	}()
	work(u)
	return nil
}
