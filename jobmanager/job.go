package jobmanager

import (
	"fmt"
	"sync"
	"time"
)

// JobID is a unique identifier for a job
type JobID int64

// JobStatus represents the current status of a job
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Task translates one unit (usually a file path)
type Task func(unit string) (interface{}, error)

// Job is one unit of a batch
type Job struct {
	ID        JobID
	Unit      string
	Status    JobStatus
	Result    interface{}
	Error     error
	StartTime time.Time
	EndTime   time.Time
	mu        sync.RWMutex
}

// NewJob creates a queued job
func NewJob(id JobID, unit string) *Job {
	return &Job{
		ID:     id,
		Unit:   unit,
		Status: StatusQueued,
	}
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusRunning
	j.StartTime = time.Now()
}

func (j *Job) finish(result interface{}, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.EndTime = time.Now()
	if err != nil {
		j.Error = err
		j.Status = StatusFailed
		return
	}
	j.Result = result
	j.Status = StatusCompleted
}

// GetStatus returns the current status of the job
func (j *Job) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// GetResult returns the result of the job
func (j *Job) GetResult() interface{} {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Result
}

// GetError returns the error of the job
func (j *Job) GetError() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Error
}

// GetDuration returns how long the job ran, or has been running
func (j *Job) GetDuration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.duration()
}

func (j *Job) duration() time.Duration {
	if j.StartTime.IsZero() {
		return 0
	}
	if j.EndTime.IsZero() {
		return time.Since(j.StartTime)
	}
	return j.EndTime.Sub(j.StartTime)
}

// ToMap returns a map representation of the job for reports
func (j *Job) ToMap() map[string]interface{} {
	j.mu.RLock()
	defer j.mu.RUnlock()

	result := map[string]interface{}{
		"id":     j.ID,
		"unit":   j.Unit,
		"status": j.Status,
	}
	if !j.EndTime.IsZero() {
		result["duration"] = j.duration().String()
	}
	if j.Error != nil {
		result["error"] = j.Error.Error()
	}
	return result
}

// String returns a string representation of the job
func (j *Job) String() string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	duration := string(j.Status)
	if !j.EndTime.IsZero() {
		duration = j.duration().String()
	}
	return fmt.Sprintf("Job[%d] %s - %s (%s)", j.ID, j.Unit, j.Status, duration)
}
