package scheduler

import "sync"

// sink collects unit results from every worker. One mutex guards the
// results, the completed counter and the per-worker slots; the reporter is
// called while it is held so it always sees a consistent snapshot.
type sink struct {
	mu   sync.Mutex
	cond *sync.Cond

	results    []UnitResult
	registered int
	completed  int
	total      int
	slots      []bool

	reporter Reporter
}

func newSink(workers, total int, reporter Reporter) *sink {
	s := &sink{
		total:    total,
		slots:    make([]bool, workers),
		reporter: reporter,
	}
	s.cond = sync.NewCond(&s.mu)

	return s
}

// register marks a worker as started
func (s *sink) register() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registered++
	s.cond.Broadcast()
}

// awaitRegistration blocks until at least one worker has started
func (s *sink) awaitRegistration() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.registered == 0 {
		s.cond.Wait()
	}
}

func (s *sink) add(res UnitResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, res)
	s.completed++
	s.report()
}

// finish flips a worker's slot to done once its chunk is exhausted
func (s *sink) finish(worker int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[worker] = true
	s.report()
	s.cond.Broadcast()
}

// awaitDone blocks until every slot is done
func (s *sink) awaitDone() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.allDone() {
		s.cond.Wait()
	}
}

func (s *sink) allDone() bool {
	for _, done := range s.slots {
		if !done {
			return false
		}
	}

	return true
}

// report must be called with mu held
func (s *sink) report() {
	s.reporter.Update(Progress{
		Slots:     append([]bool(nil), s.slots...),
		Completed: s.completed,
		Total:     s.total,
	})
}
