package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPanicRecovery(t *testing.T) {
	pool := NewPool(2, 10)
	defer pool.Stop()

	var completedTasks int32
	panicTask := func() {
		panic("intentional panic for testing")
	}
	normalTask := func() {
		atomic.AddInt32(&completedTasks, 1)
	}

	pool.Submit(panicTask)
	pool.Submit(panicTask)

	pool.Submit(normalTask)
	pool.Submit(normalTask)
	pool.Submit(normalTask)

	time.Sleep(200 * time.Millisecond)

	// Workers must survive panicking tasks.
	if atomic.LoadInt32(&completedTasks) != 3 {
		t.Errorf("Expected 3 completed tasks, got %d", completedTasks)
	}

	stats := pool.GetStats()
	if stats.Failed != 2 {
		t.Errorf("Expected 2 failed tasks, got %d", stats.Failed)
	}
	if stats.Executed != 5 {
		t.Errorf("Expected 5 executed tasks, got %d", stats.Executed)
	}
}

func TestGracefulShutdown(t *testing.T) {
	pool := NewPool(2, 10)

	var completedTasks int32
	var taskStarted sync.WaitGroup
	taskStarted.Add(1)

	slowTask := func() {
		taskStarted.Done()
		time.Sleep(300 * time.Millisecond)
		atomic.AddInt32(&completedTasks, 1)
	}

	pool.Submit(slowTask)
	taskStarted.Wait()

	// Stop must wait for the in-flight task.
	startTime := time.Now()
	pool.Stop()
	duration := time.Since(startTime)

	if duration < 250*time.Millisecond {
		t.Errorf("Shutdown was too fast, expected to wait for slow task: %v", duration)
	}

	if atomic.LoadInt32(&completedTasks) != 1 {
		t.Errorf("Expected slow task to complete, got %d completed tasks", completedTasks)
	}
}

func TestQueueFullDropPolicy(t *testing.T) {
	pool := NewPool(1, 2)
	defer pool.Stop()

	blocker := make(chan struct{})
	blockingTask := func() {
		<-blocker
	}

	pool.Submit(blockingTask)
	time.Sleep(50 * time.Millisecond) // let the worker pick it up

	// Fill the queue.
	pool.Submit(func() {})
	pool.Submit(func() {})

	// The next submission must be rejected.
	result := pool.Submit(func() {})
	if result {
		t.Error("Expected Submit to return false when queue is full, got true")
	}

	stats := pool.GetStats()
	if stats.Dropped != 1 {
		t.Errorf("Expected 1 dropped task, got %d", stats.Dropped)
	}

	close(blocker)
}

func TestConcurrentSubmit(t *testing.T) {
	pool := NewPool(4, 2000)
	defer pool.Stop()

	var completed int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pool.Submit(func() {
					atomic.AddInt32(&completed, 1)
				})
			}
		}()
	}

	wg.Wait()
	time.Sleep(500 * time.Millisecond)

	if atomic.LoadInt32(&completed) != 1000 {
		t.Errorf("Expected 1000 completed tasks, got %d", completed)
	}
}
