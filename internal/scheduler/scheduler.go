// Package scheduler evaluates pending tasks against recognition snapshots
// and wall-clock time, firing their handlers at most once.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/openhusky/huskyd/internal/audit"
	"github.com/openhusky/huskyd/internal/dispatch"
	"github.com/openhusky/huskyd/internal/husky"
	"github.com/openhusky/huskyd/internal/models"
	"github.com/openhusky/huskyd/internal/store"
	"github.com/openhusky/huskyd/internal/trigger"
)

// Scheduler owns the polling loop. Task state lives in the store; the
// scheduler only drives the documented pending->fired and
// pending->expired transitions.
type Scheduler struct {
	store      *store.Store
	device     husky.Device
	dispatcher dispatch.Dispatcher
	recorder   *audit.Recorder
	config     *Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. A nil cfg uses defaults.
func New(s *store.Store, device husky.Device, d dispatch.Dispatcher, rec *audit.Recorder, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:      s,
		device:     device,
		dispatcher: d,
		recorder:   rec,
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the background loop.
func (sch *Scheduler) Start() {
	sch.wg.Add(1)
	go sch.loop()
	log.Println("Scheduler started")
}

// Stop cancels the loop and waits for the in-flight tick, including any
// running handler call, to complete. Fired transitions already written
// are never lost.
func (sch *Scheduler) Stop() {
	sch.cancel()
	sch.wg.Wait()
	log.Println("Scheduler stopped")
}

func (sch *Scheduler) loop() {
	defer sch.wg.Done()

	ticker := time.NewTicker(sch.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sch.ctx.Done():
			return
		case <-ticker.C:
			sch.runTick()
		}
	}
}

// runTick polls the sensor and evaluates one tick. A failed poll counts
// as an empty snapshot; nothing in here terminates the loop.
func (sch *Scheduler) runTick() {
	pollCtx, cancel := context.WithTimeout(sch.ctx, sch.config.DeviceTimeout)
	snap, err := sch.device.Recognition(pollCtx)
	cancel()
	if err != nil {
		log.Printf("Recognition poll failed, treating as empty snapshot: %v", err)
		snap = models.Recognition{}
	}

	if _, err := sch.Tick(time.Now().UTC(), snap); err != nil {
		log.Printf("Tick error: %v", err)
	}
}

// Tick evaluates every pending task against one snapshot and the given
// wall-clock instant, and returns the ids of tasks that fired. It is the
// loop's step function, callable directly with synthetic clocks and
// snapshots.
//
// Time conditions are sticky: once now reaches DueAt the condition stays
// satisfied on every later tick. Trigger conditions are transient: they
// hold only when this tick's snapshot contains the exact label. A task
// fires when all of its set conditions hold on the same tick, in
// creation order when several are satisfied together.
func (sch *Scheduler) Tick(now time.Time, snap models.Recognition) ([]string, error) {
	pending, err := sch.store.PendingTasks()
	if err != nil {
		return nil, err
	}

	var fired []string
	for i := range pending {
		task := &pending[i]

		if task.ExpiresAt != nil && !now.Before(*task.ExpiresAt) {
			sch.expire(task, now)
			continue
		}

		if !sch.satisfied(task, now, snap) {
			continue
		}

		if sch.fire(task, now) {
			fired = append(fired, task.ID)
		}
	}
	return fired, nil
}

// satisfied reports whether every set condition holds at this tick.
func (sch *Scheduler) satisfied(task *models.Task, now time.Time, snap models.Recognition) bool {
	if task.HasTime() && now.Before(*task.DueAt) {
		return false
	}
	if task.HasTrigger() && !trigger.Matches(task.Trigger, snap) {
		return false
	}
	return true
}

// fire dispatches the task's handler and marks it fired. Dispatch runs
// first: a failed handler leaves the task pending so a transient capture
// failure does not silently drop it. Errors are isolated per task.
//
// The dispatch context is deliberately not derived from sch.ctx: Stop
// must let an in-flight handler call complete and its fired transition
// land, so only DeviceTimeout bounds the call.
func (sch *Scheduler) fire(task *models.Task, now time.Time) bool {
	dispatchCtx, cancel := context.WithTimeout(context.Background(), sch.config.DeviceTimeout)
	result, err := sch.dispatcher.Dispatch(dispatchCtx, task.Handler, task)
	cancel()
	if err != nil {
		log.Printf("Task %s handler %s failed, will retry: %v", task.ID, task.Handler, err)
		sch.recorder.Record("task.fail", task.ID, map[string]string{"error": err.Error()})
		return false
	}

	updated, err := sch.store.MarkFired(task.ID, now)
	if err != nil {
		log.Printf("Task %s: mark fired failed: %v", task.ID, err)
		return false
	}
	if !updated {
		// Already fired by a concurrent evaluation; nothing to record.
		return false
	}

	log.Printf("Task %s fired (handler %s)", task.ID, task.Handler)
	sch.recorder.Record("task.fire", task.ID, result)
	return true
}

func (sch *Scheduler) expire(task *models.Task, now time.Time) {
	updated, err := sch.store.ExpireTask(task.ID)
	if err != nil {
		log.Printf("Task %s: expire failed: %v", task.ID, err)
		return
	}
	if updated {
		log.Printf("Task %s expired", task.ID)
		sch.recorder.Record("task.expire", task.ID, map[string]string{"expired_at": now.Format(time.RFC3339)})
	}
}
