package registry

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasniffing/caramelo/pkg/models"
)

const errorLabel = "Error processing URL"

func newTestRegistry(t *testing.T, maxConcurrent int) *Registry {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(context.Background(), Options{MaxConcurrent: maxConcurrent, ErrorLabel: errorLabel}, logrus.NewEntry(log))
}

func TestCreateAndPoll(t *testing.T) {
	r := newTestRegistry(t, 0)
	id := r.Create()
	require.NotEmpty(t, id)

	status, ok := r.Poll(id)
	require.True(t, ok)
	assert.False(t, status.Ready())
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, r.Pending())

	other := r.Create()
	assert.NotEqual(t, id, other)
}

func TestPoll_UnknownID(t *testing.T) {
	r := newTestRegistry(t, 0)
	r.Create()

	status, ok := r.Poll("no-such-task")
	assert.False(t, ok)
	assert.Equal(t, models.TaskStatus{}, status)
}

func TestComplete(t *testing.T) {
	r := newTestRegistry(t, 0)
	id := r.Create()
	results := []models.CheckResult{
		models.NewCheckResult("Privacy Policy", true),
		models.NewFailedCheck("Error accessing URL", fmt.Errorf("boom")),
	}
	r.Complete(id, results)

	status, ok := r.Poll(id)
	require.True(t, ok)
	assert.True(t, status.Ready())
	assert.Equal(t, results, status.Results)
	assert.Equal(t, 0, r.Pending())

	// Reads are idempotent
	again, _ := r.Poll(id)
	assert.Equal(t, status, again)
}

func TestComplete_CopiesResults(t *testing.T) {
	r := newTestRegistry(t, 0)
	id := r.Create()
	results := []models.CheckResult{models.NewFailedCheck("x", fmt.Errorf("original"))}
	r.Complete(id, results)

	// Mutating the caller's slice must not leak in
	results[0].Passed = true
	*results[0].Error = "changed"

	status, _ := r.Poll(id)
	assert.False(t, status.Results[0].Passed)
	assert.Equal(t, "original", *status.Results[0].Error)

	// Nor may mutating a polled copy
	status.Results[0].Check = "tampered"
	fresh, _ := r.Poll(id)
	assert.Equal(t, "x", fresh.Results[0].Check)
}

func TestComplete_UnknownIDInserts(t *testing.T) {
	r := newTestRegistry(t, 0)
	r.Complete("external-id", nil)

	status, ok := r.Poll("external-id")
	require.True(t, ok)
	assert.True(t, status.Ready())
	assert.Equal(t, 0, r.Pending())
}

func TestSpawn(t *testing.T) {
	r := newTestRegistry(t, 0)
	release := make(chan struct{})

	id := r.Spawn("https://shop.example/", func(ctx context.Context, url string) []models.CheckResult {
		<-release
		return []models.CheckResult{models.NewCheckResult("seen "+url, true)}
	})

	status, ok := r.Poll(id)
	require.True(t, ok)
	assert.False(t, status.Ready(), "pending until the run returns")

	task, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, "https://shop.example/", task.URL)

	close(release)
	r.Wait()

	status, _ = r.Poll(id)
	require.True(t, status.Ready())
	assert.Equal(t, []models.CheckResult{models.NewCheckResult("seen https://shop.example/", true)}, status.Results)
}

func TestSpawn_PanicBecomesFailingResult(t *testing.T) {
	r := newTestRegistry(t, 0)
	id := r.Spawn("https://shop.example/", func(ctx context.Context, url string) []models.CheckResult {
		panic("parser exploded")
	})
	r.Wait()

	status, ok := r.Poll(id)
	require.True(t, ok)
	require.True(t, status.Ready())
	require.Len(t, status.Results, 1)
	assert.Equal(t, errorLabel, status.Results[0].Check)
	assert.False(t, status.Results[0].Passed)
	require.NotNil(t, status.Results[0].Error)
	assert.Contains(t, *status.Results[0].Error, "parser exploded")
}

func TestSpawn_ConcurrencyBound(t *testing.T) {
	r := newTestRegistry(t, 1)
	started := make(chan string, 2)
	release := make(chan struct{})
	run := func(ctx context.Context, url string) []models.CheckResult {
		started <- url
		<-release
		return nil
	}

	first := r.Spawn("https://a.example/", run)
	assert.Equal(t, "https://a.example/", <-started)
	second := r.Spawn("https://b.example/", run)

	select {
	case u := <-started:
		t.Fatalf("second crawl %s started while the slot was taken", u)
	case <-time.After(50 * time.Millisecond):
	}
	status, _ := r.Poll(second)
	assert.False(t, status.Ready(), "waiting tasks stay pending")

	close(release)
	r.Wait()

	for _, id := range []string{first, second} {
		status, _ := r.Poll(id)
		assert.True(t, status.Ready())
	}
}

func TestSpawn_ShutdownWhileWaiting(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, Options{MaxConcurrent: 1, ErrorLabel: errorLabel}, logrus.NewEntry(log))

	release := make(chan struct{})
	r.Spawn("https://a.example/", func(ctx context.Context, url string) []models.CheckResult {
		<-release
		return nil
	})
	waiting := r.Spawn("https://b.example/", func(ctx context.Context, url string) []models.CheckResult {
		t.Error("must not run after shutdown")
		return nil
	})

	cancel()
	require.Eventually(t, func() bool {
		status, _ := r.Poll(waiting)
		return status.Ready()
	}, time.Second, 10*time.Millisecond)

	close(release)
	r.Wait()

	status, _ := r.Poll(waiting)
	require.Len(t, status.Results, 1)
	assert.Equal(t, errorLabel, status.Results[0].Check)
	assert.NotNil(t, status.Results[0].Error)
}

func TestConcurrentAccess(t *testing.T) {
	r := newTestRegistry(t, 0)
	var wg sync.WaitGroup
	ids := make(chan string, 100)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				id := r.Create()
				ids <- id
				r.Complete(id, []models.CheckResult{models.NewCheckResult("c", true)})
				status, ok := r.Poll(id)
				assert.True(t, ok)
				assert.True(t, status.Ready())
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 100, r.Len())
	assert.Equal(t, 0, r.Pending())
}
