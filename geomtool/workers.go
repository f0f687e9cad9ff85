package main

import (
	"fmt"
	"sync"

	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"gonum.org/v1/gonum/spatial/r3"
)

// volumeCheck is one mapped volume to locate again from its position.
type volumeCheck struct {
	Id       geomid.GeometryId
	Position r3.Vec
	Leaf     bool
}

type checkResult struct {
	Check volumeCheck
	Found geomid.GeometryId
	Err   error
}

type idLocator interface {
	GetGeometryId(x, y, z float64) (geomid.GeometryId, error)
}

func worker(id int, m idLocator, jobs <-chan volumeCheck, results chan<- checkResult) {
	for check := range jobs {
		results <- locate(id, m, check)
	}
}

// locate turns a panic into a failed check so one bad volume does not stop
// the pool.
func locate(id int, m idLocator, check volumeCheck) (result checkResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("worker %d recovered from panic on %d: %v", id, check.Id.AsInt(), r)
			logger.Error(err.Error())
			result = checkResult{Check: check, Err: err}
		}
	}()
	if logger.Verbosity() > 1 {
		logger.Info(fmt.Sprintf("Worker %d locating %d", id, check.Id.AsInt()), "validate")
	}
	found, err := m.GetGeometryId(check.Position.X, check.Position.Y, check.Position.Z)
	return checkResult{Check: check, Found: found, Err: err}
}

// runChecks sends every check through numWorkers workers and returns the
// results in completion order.
func runChecks(m idLocator, checks []volumeCheck, numWorkers int) []checkResult {
	if numWorkers < 1 {
		numWorkers = 1
	}
	jobs := make(chan volumeCheck, numWorkers)
	results := make(chan checkResult, len(checks))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(id, m, jobs, results)
		}(w)
	}

	for _, check := range checks {
		jobs <- check
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]checkResult, 0, len(checks))
	for r := range results {
		out = append(out, r)
	}
	return out
}

var _ idLocator = (*geommanager.Manager)(nil)
