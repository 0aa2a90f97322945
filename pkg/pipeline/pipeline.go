// Package pipeline drives one story generation attempt through a fixed,
// ordered phase sequence and reports progress to subscribers.
//
// The phase timeline is client-facing narrative pacing: the backend executes
// one call, issued during the text phase, and the surrounding phases are
// cooperative waits that give the user a readable progress story. Phases are
// never skipped, reordered, or revisited within a run.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/segmentio/ksuid"

	"fable/pkg/fault"
	"fable/pkg/inference"
	"fable/pkg/schema"
)

// Phase is one named step of the generation sequence.
type Phase string

const (
	PhaseProfiles   Phase = "profiles"
	PhaseMemories   Phase = "memories"
	PhaseText       Phase = "text"
	PhaseValidation Phase = "validation"
	PhaseImages     Phase = "images"
	PhaseComplete   Phase = "complete"
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseProfiles, PhaseMemories, PhaseText, PhaseValidation, PhaseImages, PhaseComplete}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Event is one observable phase transition.
type Event struct {
	JobID string `json:"job_id"`
	Phase Phase  `json:"phase"`
}

// Job is the run-time record for one generation attempt. A job is never
// reused: a failed job is discarded and a fresh Start issued to retry.
type Job struct {
	ID    string
	Input Input

	mu          sync.Mutex
	phase       Phase
	emitted     []Phase
	status      Status
	result      *schema.Story
	err         error
	subscribers map[chan Event]bool
	done        chan struct{}
	cancel      context.CancelFunc
}

func newJob(input Input) *Job {
	return &Job{
		ID:          ksuid.New().String(),
		Input:       input,
		status:      StatusIdle,
		subscribers: make(map[chan Event]bool),
		done:        make(chan struct{}),
	}
}

// Status returns the job's current lifecycle state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Phase returns the phase the job last entered.
func (j *Job) Phase() Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase
}

// Result returns the generated story once the job has succeeded.
func (j *Job) Result() *schema.Story {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Err returns the classified failure once the job has failed.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed when the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel aborts the run, including any in-flight backend request. The job
// terminates failed with kind Canceled.
func (j *Job) Cancel() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Subscribe registers a listener for phase events. Phases already passed are
// replayed first, so a listener attached at any point observes the full
// sequence in order. The channel is buffered deep enough to hold every phase
// of a run; slow listeners that let it fill miss events rather than stalling
// the pipeline.
func (j *Job) Subscribe() chan Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	ch := make(chan Event, 2*len(Phases))
	for _, phase := range j.emitted {
		ch <- Event{JobID: j.ID, Phase: phase}
	}
	if j.status == StatusSucceeded || j.status == StatusFailed {
		// Terminal jobs get a closed channel; the snapshot has the outcome.
		close(ch)
		return ch
	}
	j.subscribers[ch] = true
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (j *Job) Unsubscribe(ch chan Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.subscribers[ch] {
		delete(j.subscribers, ch)
		close(ch)
	}
}

// advance moves the job into the next phase and notifies subscribers.
func (j *Job) advance(phase Phase) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.phase = phase
	j.emitted = append(j.emitted, phase)
	ev := Event{JobID: j.ID, Phase: phase}
	for ch := range j.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (j *Job) finish(status Status, result *schema.Story, err error) {
	j.mu.Lock()
	j.status = status
	j.result = result
	j.err = err
	subs := make([]chan Event, 0, len(j.subscribers))
	for ch := range j.subscribers {
		delete(j.subscribers, ch)
		subs = append(subs, ch)
	}
	j.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
	close(j.done)
}

// Runner starts and paces generation jobs.
type Runner struct {
	inf inference.Inferencer

	// StepDelay paces the synthetic phases around the one real backend call.
	// Zero disables pacing (tests).
	StepDelay time.Duration
	// CallTimeout bounds the backend call.
	CallTimeout time.Duration
	// PromptBudget caps prompt size in tokens before any network effect.
	PromptBudget int
}

func NewRunner(inf inference.Inferencer) *Runner {
	return &Runner{
		inf:          inf,
		StepDelay:    600 * time.Millisecond,
		CallTimeout:  2 * time.Minute,
		PromptBudget: 24576,
	}
}

// Start validates input and launches a generation job. Precondition
// violations reject with fault.InvalidInput before any backend effect; the
// returned job is already running otherwise. Callers must not reuse a job
// and are expected to disable the triggering control while one is running.
func (r *Runner) Start(ctx context.Context, input Input) (*Job, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	job := newJob(input)
	ctx, cancel := context.WithCancel(ctx)

	job.mu.Lock()
	job.status = StatusRunning
	job.cancel = cancel
	job.mu.Unlock()

	log.Info("generation started", "job", job.ID, "template", input.TemplateID, "freeform", input.Config != nil)
	go r.run(ctx, job)

	return job, nil
}

func (r *Runner) run(ctx context.Context, job *Job) {
	defer func() {
		if job.cancel != nil {
			job.cancel()
		}
	}()

	fail := func(err error) {
		kind := fault.KindOf(err)
		var fe *fault.Error
		if !errors.As(err, &fe) {
			err = fault.New(kind, err)
		}
		log.Error("generation failed", "job", job.ID, "phase", job.Phase(), "kind", kind, "error", err)
		job.finish(StatusFailed, nil, err)
	}

	for _, phase := range []Phase{PhaseProfiles, PhaseMemories} {
		job.advance(phase)
		if err := r.pace(ctx); err != nil {
			fail(err)
			return
		}
	}

	job.advance(PhaseText)
	story, err := r.generate(ctx, job.Input)
	if err != nil {
		fail(err)
		return
	}

	for _, phase := range []Phase{PhaseValidation, PhaseImages} {
		job.advance(phase)
		if err := r.pace(ctx); err != nil {
			fail(err)
			return
		}
	}

	job.advance(PhaseComplete)
	log.Info("generation succeeded", "job", job.ID, "title", story.Title, "chapters", len(story.Chapters))
	job.finish(StatusSucceeded, story, nil)
}

// pace is a cooperative wait between synthetic phases.
func (r *Runner) pace(ctx context.Context) error {
	if r.StepDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(r.StepDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
