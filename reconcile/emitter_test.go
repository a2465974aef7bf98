package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHandler records its runs into a shared trace
type fakeHandler struct {
	baseHandler
	trace   *[]string
	mu      *sync.Mutex
	match   func(c *Change) bool
	execute func(ctx context.Context, c *Change) (string, error)
}

func newFakeHandler(name string, priority int, trace *[]string, mu *sync.Mutex) *fakeHandler {
	return &fakeHandler{
		baseHandler: baseHandler{name: name, priority: priority},
		trace:       trace,
		mu:          mu,
		match:       func(*Change) bool { return true },
		execute:     func(context.Context, *Change) (string, error) { return "", nil },
	}
}

func (h *fakeHandler) ShouldHandle(c *Change) bool { return h.match(c) }

func (h *fakeHandler) Execute(ctx context.Context, c *Change) (string, error) {
	h.mu.Lock()
	*h.trace = append(*h.trace, h.name)
	h.mu.Unlock()
	return h.execute(ctx, c)
}

type recordingObserver struct {
	mu         sync.Mutex
	outcomes   map[string]Outcome
	suppressed []ActionKind
}

func (o *recordingObserver) HandlerFinished(handler string, outcome Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]Outcome)
	}
	o.outcomes[handler] = outcome
}

func (o *recordingObserver) ChangeSuppressed(kind ActionKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.suppressed = append(o.suppressed, kind)
}

func roleChange(id int64, before, after []string) *Change {
	return NewChange(
		MemberSnapshot{DiscordID: id, Nickname: "Zezima", Roles: before},
		MemberSnapshot{DiscordID: id, Nickname: "Zezima", Roles: after},
		"report",
	)
}

func TestEmitter_RunsMatchingHandlersByPriority(t *testing.T) {
	t.Parallel()

	var trace []string
	var mu sync.Mutex
	emitter := NewEmitter(NewCorrectiveActions(time.Minute), &recordingNotifier{})

	never := newFakeHandler("never", 5, &trace, &mu)
	never.match = func(*Change) bool { return false }

	emitter.Register(newFakeHandler("thirty", 30, &trace, &mu))
	emitter.Register(newFakeHandler("ten", 10, &trace, &mu))
	emitter.Register(never)
	emitter.Register(newFakeHandler("thirty-later", 30, &trace, &mu))
	emitter.Register(newFakeHandler("twenty", 20, &trace, &mu))

	dispatch := emitter.Emit(context.Background(), roleChange(1, nil, []string{"Member"}))

	assert.Equal(t, []string{"ten", "twenty", "thirty", "thirty-later"}, trace)
	assert.Equal(t, trace, dispatch.Ran)
	assert.False(t, dispatch.Suppressed)
}

func TestEmitter_StopsAfterRevert(t *testing.T) {
	t.Parallel()

	var trace []string
	var mu sync.Mutex
	notifier := &recordingNotifier{}
	observer := &recordingObserver{}
	emitter := NewEmitter(NewCorrectiveActions(time.Minute), notifier)
	emitter.SetObserver(observer)

	reverting := newFakeHandler("reverting", 10, &trace, &mu)
	reverting.execute = func(_ context.Context, c *Change) (string, error) {
		c.MarkReverted("reverting")
		return "undone", nil
	}
	emitter.Register(reverting)
	emitter.Register(newFakeHandler("later", 30, &trace, &mu))

	dispatch := emitter.Emit(context.Background(), roleChange(1, nil, []string{"Member"}))

	assert.Equal(t, []string{"reverting"}, trace)
	assert.Equal(t, []string{"later"}, dispatch.Skipped)
	assert.Equal(t, []string{"undone"}, notifier.Messages())
	assert.Equal(t, OutcomeReverted, observer.outcomes["reverting"])
}

func TestEmitter_ErrorsAndPanicsAreReported(t *testing.T) {
	t.Parallel()

	var trace []string
	var mu sync.Mutex
	notifier := &recordingNotifier{}
	observer := &recordingObserver{}
	emitter := NewEmitter(NewCorrectiveActions(time.Minute), notifier)
	emitter.SetObserver(observer)

	failing := newFakeHandler("failing", 10, &trace, &mu)
	failing.execute = func(context.Context, *Change) (string, error) {
		return "", errors.New("database unavailable")
	}
	panicking := newFakeHandler("panicking", 20, &trace, &mu)
	panicking.execute = func(context.Context, *Change) (string, error) {
		panic("boom")
	}
	denied := newFakeHandler("denied", 30, &trace, &mu)
	denied.execute = func(context.Context, *Change) (string, error) {
		return "", ErrMissingPermission
	}
	emitter.Register(failing)
	emitter.Register(panicking)
	emitter.Register(denied)
	emitter.Register(newFakeHandler("fine", 40, &trace, &mu))

	emitter.Emit(context.Background(), roleChange(1, nil, []string{"Member"}))

	assert.Equal(t, []string{"failing", "panicking", "denied", "fine"}, trace)
	messages := notifier.Messages()
	require.Len(t, messages, 3)
	assert.Contains(t, messages[0], "database unavailable")
	assert.Contains(t, messages[1], "panicked")
	assert.Contains(t, messages[2], "lacks permission")
	assert.Equal(t, OutcomeError, observer.outcomes["failing"])
	assert.Equal(t, OutcomePanic, observer.outcomes["panicking"])
	assert.Equal(t, OutcomeOK, observer.outcomes["fine"])
}

func TestEmitter_DropsEchoOfCorrectiveAction(t *testing.T) {
	t.Parallel()

	var trace []string
	var mu sync.Mutex
	ledger := NewCorrectiveActions(time.Minute)
	observer := &recordingObserver{}
	emitter := NewEmitter(ledger, &recordingNotifier{})
	emitter.SetObserver(observer)
	emitter.Register(newFakeHandler("any", 10, &trace, &mu))

	ledger.Expect(1, ActionRoleRemoved, "Member")

	dispatch := emitter.Emit(context.Background(), roleChange(1, []string{"Member"}, nil))
	assert.True(t, dispatch.Suppressed)
	assert.Empty(t, trace)
	assert.Equal(t, []ActionKind{ActionRoleRemoved}, observer.suppressed)

	// a second, genuine removal is handled
	dispatch = emitter.Emit(context.Background(), roleChange(1, []string{"Member"}, nil))
	assert.False(t, dispatch.Suppressed)
	assert.Equal(t, []string{"any"}, trace)
}

func TestEmitter_PartialEchoKeepsTheRest(t *testing.T) {
	t.Parallel()

	var trace []string
	var mu sync.Mutex
	ledger := NewCorrectiveActions(time.Minute)
	emitter := NewEmitter(ledger, nil)

	var seen *Change
	h := newFakeHandler("any", 10, &trace, &mu)
	h.execute = func(_ context.Context, c *Change) (string, error) {
		seen = c
		return "", nil
	}
	emitter.Register(h)

	ledger.Expect(1, ActionRoleRemoved, "Member")
	emitter.Emit(context.Background(), roleChange(1, []string{"Member"}, []string{"Rune"}))

	require.NotNil(t, seen)
	assert.Empty(t, seen.RolesRemoved)
	assert.Equal(t, []string{"Rune"}, seen.RolesAdded)
}

func TestEmitter_SerializesPerMember(t *testing.T) {
	t.Parallel()

	var trace []string
	var mu sync.Mutex
	emitter := NewEmitter(nil, nil)

	var active, maxActive int
	var counterMu sync.Mutex
	h := newFakeHandler("slow", 10, &trace, &mu)
	h.execute = func(context.Context, *Change) (string, error) {
		counterMu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		counterMu.Unlock()

		time.Sleep(5 * time.Millisecond)

		counterMu.Lock()
		active--
		counterMu.Unlock()
		return "", nil
	}
	emitter.Register(h)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emitter.Emit(context.Background(), roleChange(42, nil, []string{"Member"}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Len(t, trace, 10)
	assert.Empty(t, emitter.locks.held)
}
