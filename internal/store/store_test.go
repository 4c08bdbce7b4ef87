package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/openhusky/huskyd/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddTaskValidation(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		name string
		spec models.TaskSpec
		ok   bool
	}{
		{"trigger only", models.TaskSpec{Trigger: "tiger", Handler: "take_photo"}, true},
		{"time now", models.TaskSpec{Time: "now", Handler: "take_photo"}, true},
		{"absolute time", models.TaskSpec{Time: "2031-01-02T15:04:05Z", Handler: "take_photo"}, true},
		{"trigger and time", models.TaskSpec{Trigger: "cat", Time: "now", Handler: "take_photo"}, true},
		{"case preserved trigger", models.TaskSpec{Trigger: "kEyboArd", Handler: "take_photo"}, true},
		{"no condition", models.TaskSpec{Handler: "take_photo"}, false},
		{"unknown handler", models.TaskSpec{Trigger: "tiger", Handler: "send_email"}, false},
		{"empty handler", models.TaskSpec{Trigger: "tiger"}, false},
		{"bad time", models.TaskSpec{Time: "tomorrow", Handler: "take_photo"}, false},
		{"bad expires_at", models.TaskSpec{Trigger: "tiger", Handler: "take_photo", ExpiresAt: "soon"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task, err := s.AddTask(tc.spec)
			if tc.ok {
				if err != nil {
					t.Fatalf("AddTask(%+v) failed: %v", tc.spec, err)
				}
				if task.ID == "" {
					t.Error("Task has no id")
				}
				if task.Status != models.TaskStatusPending {
					t.Errorf("Expected pending status, got %s", task.Status)
				}
				if task.Trigger != tc.spec.Trigger {
					t.Errorf("Trigger mutated: %q -> %q", tc.spec.Trigger, task.Trigger)
				}
				return
			}
			if !errors.Is(err, ErrInvalidTaskSpec) {
				t.Fatalf("Expected ErrInvalidTaskSpec, got %v", err)
			}
		})
	}
}

func TestListTasksCreationOrder(t *testing.T) {
	s := newTestStore(t)

	triggers := []string{"first", "second", "third", "fourth"}
	ids := make(map[string]bool)
	for _, tr := range triggers {
		task, err := s.AddTask(models.TaskSpec{Trigger: tr, Handler: "take_photo"})
		if err != nil {
			t.Fatalf("Failed to add task: %v", err)
		}
		if ids[task.ID] {
			t.Fatalf("Duplicate task id %s", task.ID)
		}
		ids[task.ID] = true
	}

	tasks, err := s.ListTasks("")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != len(triggers) {
		t.Fatalf("Expected %d tasks, got %d", len(triggers), len(tasks))
	}
	for i, task := range tasks {
		if task.Trigger != triggers[i] {
			t.Errorf("Position %d: expected trigger %q, got %q", i, triggers[i], task.Trigger)
		}
	}
}

func TestTimeNowParsing(t *testing.T) {
	s := newTestStore(t)

	task, err := s.AddTask(models.TaskSpec{Time: "now", Handler: "take_photo"})
	if err != nil {
		t.Fatalf("Failed to add task: %v", err)
	}
	if task.DueAt == nil {
		t.Fatal("Expected DueAt to be set for time=now")
	}
	if !task.DueAt.Equal(task.CreatedAt) {
		t.Errorf("time=now should anchor DueAt at creation: due %v, created %v", task.DueAt, task.CreatedAt)
	}
	if task.Time != "now" {
		t.Errorf("Raw time value not preserved: %q", task.Time)
	}
}

func TestMarkFiredIdempotent(t *testing.T) {
	s := newTestStore(t)

	task, err := s.AddTask(models.TaskSpec{Trigger: "tiger", Handler: "take_photo"})
	if err != nil {
		t.Fatalf("Failed to add task: %v", err)
	}

	firedAt := time.Now().UTC()
	updated, err := s.MarkFired(task.ID, firedAt)
	if err != nil {
		t.Fatalf("MarkFired failed: %v", err)
	}
	if !updated {
		t.Fatal("First MarkFired should report a transition")
	}

	updated, err = s.MarkFired(task.ID, firedAt.Add(time.Second))
	if err != nil {
		t.Fatalf("Second MarkFired failed: %v", err)
	}
	if updated {
		t.Error("Second MarkFired should be a no-op")
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != models.TaskStatusFired {
		t.Errorf("Expected fired status, got %s", got.Status)
	}
	if got.FiredAt == nil {
		t.Fatal("FiredAt not set")
	}
	// The second call must not have moved the timestamp
	if got.FiredAt.After(firedAt.Add(500 * time.Millisecond)) {
		t.Errorf("FiredAt overwritten by second MarkFired: %v", got.FiredAt)
	}
}

func TestCancelTask(t *testing.T) {
	s := newTestStore(t)

	task, err := s.AddTask(models.TaskSpec{Trigger: "tiger", Handler: "take_photo"})
	if err != nil {
		t.Fatalf("Failed to add task: %v", err)
	}

	if err := s.CancelTask(task.ID); err != nil {
		t.Fatalf("CancelTask failed: %v", err)
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != models.TaskStatusCancelled {
		t.Errorf("Expected cancelled status, got %s", got.Status)
	}

	// Cancelling again is rejected
	if err := s.CancelTask(task.ID); !errors.Is(err, ErrTaskNotCancellable) {
		t.Errorf("Expected ErrTaskNotCancellable, got %v", err)
	}

	if err := s.CancelTask("no-such-id"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestExpireTask(t *testing.T) {
	s := newTestStore(t)

	task, err := s.AddTask(models.TaskSpec{Trigger: "tiger", Handler: "take_photo"})
	if err != nil {
		t.Fatalf("Failed to add task: %v", err)
	}

	updated, err := s.ExpireTask(task.ID)
	if err != nil {
		t.Fatalf("ExpireTask failed: %v", err)
	}
	if !updated {
		t.Fatal("First ExpireTask should report a transition")
	}

	updated, err = s.ExpireTask(task.ID)
	if err != nil {
		t.Fatalf("Second ExpireTask failed: %v", err)
	}
	if updated {
		t.Error("ExpireTask on a non-pending task should be a no-op")
	}
}

func TestPendingTasksFilter(t *testing.T) {
	s := newTestStore(t)

	a, _ := s.AddTask(models.TaskSpec{Trigger: "a", Handler: "take_photo"})
	b, _ := s.AddTask(models.TaskSpec{Trigger: "b", Handler: "take_photo"})
	c, _ := s.AddTask(models.TaskSpec{Trigger: "c", Handler: "take_photo"})

	if _, err := s.MarkFired(b.ID, time.Now()); err != nil {
		t.Fatalf("MarkFired failed: %v", err)
	}

	pending, err := s.PendingTasks()
	if err != nil {
		t.Fatalf("PendingTasks failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending tasks, got %d", len(pending))
	}
	if pending[0].ID != a.ID || pending[1].ID != c.ID {
		t.Error("Pending tasks not in creation order")
	}
}

func TestConcurrentAdds(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	errCh := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddTask(models.TaskSpec{Trigger: "tiger", Handler: "take_photo"})
			if err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("Concurrent AddTask failed: %v", err)
	}

	tasks, err := s.ListTasks("")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 20 {
		t.Errorf("Expected 20 tasks, got %d", len(tasks))
	}
	seen := make(map[string]bool)
	for _, task := range tasks {
		if seen[task.ID] {
			t.Errorf("Duplicate task id %s", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestEvents(t *testing.T) {
	s := newTestStore(t)

	if err := s.WriteEvent("task.create", "t1", "created"); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	if err := s.WriteEvent("task.fire", "t1", ""); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	if err := s.WriteEvent("photo.capture", "", "manual"); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	events, err := s.ListEvents("", 10)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	// Newest first
	if events[0].Action != "photo.capture" {
		t.Errorf("Expected newest event first, got %s", events[0].Action)
	}

	taskEvents, err := s.ListEvents("t1", 10)
	if err != nil {
		t.Fatalf("ListEvents(t1) failed: %v", err)
	}
	if len(taskEvents) != 2 {
		t.Errorf("Expected 2 events for t1, got %d", len(taskEvents))
	}
}
