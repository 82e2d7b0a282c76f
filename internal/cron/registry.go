package cron

import (
	"context"
	"fmt"
)

// Job is one unit of work run during every trigger cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in the order they run within a cycle.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs. Nil jobs
// are ignored; duplicate names are an error.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends a job.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	for _, existing := range r.jobs {
		if existing.Name() == job.Name() {
			return fmt.Errorf("job %q already registered", job.Name())
		}
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
