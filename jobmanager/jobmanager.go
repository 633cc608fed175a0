// Package jobmanager runs independent translation units on a bounded pool.
// Each unit is processed start to finish by one goroutine; units never share state.
package jobmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// JobManager manages the lifecycle of batch jobs
type JobManager struct {
	jobs       map[JobID]*Job
	mu         sync.RWMutex
	semaphore  chan struct{}        // concurrency limit
	nextID     JobID                // next job ID
	notifyChan chan JobNotification // job notifications
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// JobNotification represents a notification about a finished job
type JobNotification struct {
	JobID  JobID
	Unit   string
	Status JobStatus
	Error  error
}

// NewJobManager creates a new JobManager with the specified concurrency limit
func NewJobManager(concurrencyLimit int) *JobManager {
	if concurrencyLimit < 1 {
		concurrencyLimit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &JobManager{
		jobs:       make(map[JobID]*Job),
		semaphore:  make(chan struct{}, concurrencyLimit),
		nextID:     1,
		notifyChan: make(chan JobNotification, 100),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Submit queues a job and waits for a free slot. The job runs in its own goroutine.
func (jm *JobManager) Submit(ctx context.Context, unit string, task Task) (*Job, error) {
	select {
	case <-jm.ctx.Done():
		return nil, errors.New("job manager is shutting down")
	default:
	}

	jm.mu.Lock()
	job := NewJob(jm.nextID, unit)
	jm.nextID++
	jm.jobs[job.ID] = job
	jm.mu.Unlock()

	select {
	case jm.semaphore <- struct{}{}:
	case <-ctx.Done():
		job.finish(nil, ctx.Err())
		return job, ctx.Err()
	case <-jm.ctx.Done():
		job.finish(nil, errors.New("job manager is shutting down"))
		return job, job.GetError()
	}

	jm.wg.Add(1)
	go jm.executeJob(job, task)
	return job, nil
}

// executeJob executes a job and handles its lifecycle
func (jm *JobManager) executeJob(job *Job, task Task) {
	defer jm.wg.Done()
	defer func() { <-jm.semaphore }()

	job.start()
	result, err := runTask(job.Unit, task)
	job.finish(result, err)

	// уведомления не должны блокировать пул
	select {
	case jm.notifyChan <- JobNotification{JobID: job.ID, Unit: job.Unit, Status: job.GetStatus(), Error: err}:
	default:
	}
}

func runTask(unit string, task Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", unit, r)
		}
	}()
	return task(unit)
}

// RunAll processes every unit and returns the jobs in input order
func (jm *JobManager) RunAll(ctx context.Context, units []string, task Task) []*Job {
	jobs := make([]*Job, 0, len(units))
	for _, unit := range units {
		job, err := jm.Submit(ctx, unit, task)
		if job != nil {
			jobs = append(jobs, job)
		}
		if err != nil {
			break
		}
	}
	jm.Wait()
	return jobs
}

// Wait blocks until every submitted job has finished
func (jm *JobManager) Wait() {
	jm.wg.Wait()
}

// GetJob returns a specific job
func (jm *JobManager) GetJob(id JobID) (*Job, error) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job with ID %d not found", id)
	}
	return job, nil
}

// GetNotificationChannel returns the channel for job notifications
func (jm *JobManager) GetNotificationChannel() <-chan JobNotification {
	return jm.notifyChan
}

// GetRunningJobsCount returns the number of currently running jobs
func (jm *JobManager) GetRunningJobsCount() int {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	count := 0
	for _, job := range jm.jobs {
		if job.GetStatus() == StatusRunning {
			count++
		}
	}
	return count
}

// GetConcurrencyLimit returns the concurrency limit
func (jm *JobManager) GetConcurrencyLimit() int {
	return cap(jm.semaphore)
}

// Shutdown waits for running jobs and closes the notification channel
func (jm *JobManager) Shutdown() {
	jm.cancel()
	jm.wg.Wait()
	close(jm.notifyChan)
}
