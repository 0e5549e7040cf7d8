package reactive

import "errors"

// Queue is a FIFO of deferred jobs, drained by the host at the points where a
// browser would run its microtasks: after construction and after each
// externally triggered mutation.
type Queue struct {
	jobs []func() error
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue schedules job for the next Drain.
func (q *Queue) Enqueue(job func() error) {
	q.jobs = append(q.jobs, job)
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Drain runs jobs until the queue is empty, including jobs enqueued while
// draining. A failing job does not stop later jobs; all errors are joined.
func (q *Queue) Drain() error {
	var errs []error
	for len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		if err := job(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
