package jobmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllKeepsInputOrder(t *testing.T) {
	jm := NewJobManager(3)
	defer jm.Shutdown()

	units := []string{"c.cpp", "a.cpp", "b.cpp", "bad.cpp", "d.cpp"}
	delays := map[string]int{"c.cpp": 15, "a.cpp": 10, "b.cpp": 5, "d.cpp": 1}
	jobs := jm.RunAll(context.Background(), units, func(unit string) (interface{}, error) {
		if strings.HasPrefix(unit, "bad") {
			return nil, errors.New("malformed")
		}
		// более ранние единицы заканчивают позже
		time.Sleep(time.Duration(delays[unit]) * time.Millisecond)
		return strings.ToUpper(unit), nil
	})

	require.Len(t, jobs, len(units))
	for i, job := range jobs {
		assert.Equal(t, units[i], job.Unit)
	}
	assert.Equal(t, "C.CPP", jobs[0].GetResult())
	assert.Equal(t, StatusCompleted, jobs[0].GetStatus())
	assert.Equal(t, StatusFailed, jobs[3].GetStatus())
	assert.EqualError(t, jobs[3].GetError(), "malformed")
	assert.Equal(t, 0, jm.GetRunningJobsCount())
}

func TestConcurrencyLimit(t *testing.T) {
	jm := NewJobManager(2)
	defer jm.Shutdown()
	assert.Equal(t, 2, jm.GetConcurrencyLimit())

	var running, peak int32
	units := make([]string, 8)
	for i := range units {
		units[i] = fmt.Sprintf("u%d", i)
	}
	jm.RunAll(context.Background(), units, func(unit string) (interface{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Positive(t, atomic.LoadInt32(&peak))
}

func TestPanicBecomesFailure(t *testing.T) {
	jm := NewJobManager(1)
	defer jm.Shutdown()

	jobs := jm.RunAll(context.Background(), []string{"x"}, func(string) (interface{}, error) {
		panic("boom")
	})
	require.Len(t, jobs, 1)
	assert.Equal(t, StatusFailed, jobs[0].GetStatus())
	assert.Contains(t, jobs[0].GetError().Error(), "boom")

	got, err := jm.GetJob(jobs[0].ID)
	require.NoError(t, err)
	assert.Same(t, jobs[0], got)

	_, err = jm.GetJob(999)
	assert.Error(t, err)
}

func TestNotifications(t *testing.T) {
	jm := NewJobManager(2)
	jm.RunAll(context.Background(), []string{"a", "b"}, func(unit string) (interface{}, error) {
		return unit, nil
	})
	jm.Shutdown()

	var units []string
	for n := range jm.GetNotificationChannel() {
		assert.Equal(t, StatusCompleted, n.Status)
		units = append(units, n.Unit)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, units)
}

func TestSubmitAfterShutdown(t *testing.T) {
	jm := NewJobManager(1)
	jm.Shutdown()

	_, err := jm.Submit(context.Background(), "late", func(string) (interface{}, error) { return nil, nil })
	assert.Error(t, err)
}

func TestJobReport(t *testing.T) {
	job := NewJob(7, "main.cpp")
	assert.Equal(t, StatusQueued, job.GetStatus())
	assert.Zero(t, job.GetDuration())

	job.start()
	job.finish(nil, errors.New("bad"))
	m := job.ToMap()
	assert.Equal(t, "main.cpp", m["unit"])
	assert.Equal(t, "bad", m["error"])
	assert.Contains(t, job.String(), "Job[7] main.cpp - failed")
}
