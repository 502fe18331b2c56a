package pending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

type step struct {
	status models.SubscriptionStatus
	err    error
}

// scriptedSource отдаёт шаги по очереди; последний шаг повторяется.
type scriptedSource struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (s *scriptedSource) Session(context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	st := s.steps[i]
	if st.err != nil {
		return nil, st.err
	}
	return &models.User{ID: "u1", SubscriptionStatus: st.status}, nil
}

type recordingObserver struct {
	mu      sync.Mutex
	results map[string]int
}

func (o *recordingObserver) PendingCheck(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[string]int)
	}
	o.results[result]++
}

func (o *recordingObserver) count(result string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.results[result]
}

func repeat(st step, n int) []step {
	out := make([]step, n)
	for i := range out {
		out[i] = st
	}
	return out
}

func drain(w *Watcher) []Event {
	var events []Event
	for ev := range w.Events() {
		events = append(events, ev)
	}
	return events
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestWatcher_ApprovedImmediately(t *testing.T) {
	src := &scriptedSource{steps: []step{{status: models.StatusActive}}}
	obs := &recordingObserver{}
	w := New(src, sl.Discard(), WithInterval(time.Hour), WithObserver(obs))

	res, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, res.Outcome)
	require.NotNil(t, res.User)
	assert.Equal(t, models.StatusActive, res.User.SubscriptionStatus)
	assert.False(t, res.TimedOut)

	events := drain(w)
	require.Len(t, events, 1)
	assert.Equal(t, EventApproved, events[0].Kind)
	assert.Equal(t, 1, obs.count(CheckApproved))
}

func TestWatcher_Rejected(t *testing.T) {
	steps := append(repeat(step{status: models.StatusPending}, 2), step{status: models.StatusNone})
	src := &scriptedSource{steps: steps}
	obs := &recordingObserver{}
	w := New(src, sl.Discard(), WithInterval(5*time.Millisecond), WithObserver(obs))

	res, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, 2, obs.count(CheckPending))
	assert.Equal(t, 1, obs.count(CheckRejected))

	events := drain(w)
	assert.Equal(t, 2, countKind(events, EventChecked))
	assert.Equal(t, 1, countKind(events, EventRejected))
}

func TestWatcher_TimedOutKeepsPolling(t *testing.T) {
	steps := append(repeat(step{status: models.StatusPending}, 8), step{status: models.StatusActive})
	src := &scriptedSource{steps: steps}
	w := New(src, sl.Discard(),
		WithInterval(10*time.Millisecond),
		WithCountdown(20*time.Millisecond),
		WithTick(5*time.Millisecond),
	)

	res, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, res.Outcome)
	assert.True(t, res.TimedOut)
	assert.Equal(t, 9, src.calls)

	events := drain(w)
	assert.Equal(t, 1, countKind(events, EventTimedOut), "timeout is reported once")
	assert.Equal(t, EventApproved, events[len(events)-1].Kind)
	for _, ev := range events {
		if ev.Kind == EventTick {
			assert.Greater(t, ev.Remaining, time.Duration(0))
		}
	}
}

func TestWatcher_TimedOutSurvivesFullBuffer(t *testing.T) {
	src := &scriptedSource{steps: []step{{status: models.StatusPending}, {status: models.StatusActive}}}
	w := New(src, sl.Discard(),
		WithInterval(300*time.Millisecond),
		WithCountdown(100*time.Millisecond),
		WithTick(time.Millisecond),
	)

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := w.Run(context.Background())
		done <- outcome{res, err}
	}()

	// Тики заполняют буфер, пока никто не читает.
	time.Sleep(200 * time.Millisecond)
	events := drain(w)

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, OutcomeApproved, out.res.Outcome)
	assert.True(t, out.res.TimedOut)

	assert.Equal(t, 1, countKind(events, EventTimedOut))
	assert.Equal(t, 1, countKind(events, EventChecked))
	assert.LessOrEqual(t, countKind(events, EventTick), eventsBufSize)
	assert.Equal(t, EventApproved, events[len(events)-1].Kind)
}

func TestWatcher_ErrorsDoNotStopPolling(t *testing.T) {
	boom := errors.New("connection refused")
	src := &scriptedSource{steps: []step{{err: boom}, {err: boom}, {status: models.StatusActive}}}
	obs := &recordingObserver{}
	w := New(src, sl.Discard(), WithInterval(5*time.Millisecond), WithObserver(obs))

	res, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, res.Outcome)
	assert.Equal(t, 2, obs.count(CheckError))

	events := drain(w)
	require.Equal(t, 2, countKind(events, EventCheckFailed))
	assert.ErrorIs(t, events[0].Err, boom)
}

func TestWatcher_Canceled(t *testing.T) {
	src := &scriptedSource{steps: []step{{status: models.StatusPending}}}
	w := New(src, sl.Discard(), WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	res, err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, OutcomeCanceled, res.Outcome)
	assert.Nil(t, res.User)

	events := drain(w)
	assert.Zero(t, countKind(events, EventApproved))
}

func TestNew_Defaults(t *testing.T) {
	w := New(&scriptedSource{}, sl.Discard(), WithInterval(0), WithCountdown(-time.Second))
	assert.Equal(t, DefaultInterval, w.interval)
	assert.Equal(t, DefaultCountdown, w.countdown)
	assert.Equal(t, time.Second, w.tick)
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: DefaultCountdown, want: "10:00"},
		{d: 599 * time.Second, want: "09:59"},
		{d: 61 * time.Second, want: "01:01"},
		{d: 9 * time.Second, want: "00:09"},
		{d: 0, want: "00:00"},
		{d: -time.Second, want: "00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCountdown(tt.d))
		})
	}
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "timed_out", EventTimedOut.String())
	assert.Equal(t, "EventKind(42)", EventKind(42).String())
}
