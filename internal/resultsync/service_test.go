package resultsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/card"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/identity"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

type fakeClient struct {
	mu          sync.Mutex
	registers   []string
	submissions []identity.ScorePayload
	fetches     []string
	submitCode  int
	submitErr   error
	attrs       *model.CardAttributes
	// onSubmit runs after a submission is recorded, outside the lock.
	onSubmit func(identity.ScorePayload)
}

func (f *fakeClient) Register(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers = append(f.registers, id)
	return http.StatusCreated, nil
}

func (f *fakeClient) SubmitScore(_ context.Context, payload identity.ScorePayload) (int, error) {
	f.mu.Lock()
	f.submissions = append(f.submissions, payload)
	code, err, hook := f.submitCode, f.submitErr, f.onSubmit
	f.mu.Unlock()
	if hook != nil {
		hook(payload)
	}
	if err != nil {
		return 0, err
	}
	if code == 0 {
		return http.StatusNoContent, nil
	}
	return code, nil
}

func (f *fakeClient) FetchAttributes(_ context.Context, id string) (*model.CardAttributes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, id)
	if f.attrs == nil {
		return nil, nil
	}
	a := *f.attrs
	a.NfcID = id
	return &a, nil
}

func inline(f func()) { f() }

func newTestService(t *testing.T, client Client, policy RetryPolicy) (*Service, *card.Registry) {
	t.Helper()
	reg := card.NewRegistry()
	svc := New(client, reg, Options{
		RetryPolicy:    policy,
		FetchOnConnect: true,
		Logger:         zerolog.Nop(),
		Executor:       inline,
		Now:            func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) },
	})
	t.Cleanup(svc.Close)
	return svc, reg
}

func result(id string, score model.ScoreTriple) model.Result {
	return model.Result{SessionID: id, ErrorsFound: 7, EndCause: model.EndCompleted, Score: score}
}

var (
	high = model.ScoreTriple{Empathy: 8, Creativity: 7, ProblemSolving: 6}
	low  = model.ScoreTriple{Empathy: 6, Creativity: 5, ProblemSolving: 4}
)

func TestParseRetryPolicy(t *testing.T) {
	p, err := ParseRetryPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RetryManual, p)
	p, err = ParseRetryPolicy(" Next-Connect ")
	require.NoError(t, err)
	assert.Equal(t, RetryOnNextConnect, p)
	_, err = ParseRetryPolicy("always")
	assert.Error(t, err)
}

func TestBufferedResultFlushesOnConnect(t *testing.T) {
	client := &fakeClient{}
	svc, reg := newTestService(t, client, RetryManual)

	started := svc.Submit(result("s1", high))
	assert.False(t, started)
	require.NotNil(t, svc.Snapshot().Pending)
	assert.Empty(t, client.submissions)

	reg.Connect("X", "reader")

	assert.Equal(t, []string{"X"}, client.registers)
	require.Len(t, client.submissions, 1)
	assert.Equal(t, identity.ScorePayload{NfcID: "X", GameID: model.GameID, Skill1: 8, Skill2: 7, Skill3: 6}, client.submissions[0])

	snap := svc.Snapshot()
	assert.Nil(t, snap.Pending)
	assert.False(t, snap.InFlight)
	require.NotNil(t, snap.LastOutcome)
	assert.Equal(t, model.DeliveryDelivered, snap.LastOutcome.Status)
	assert.True(t, snap.LastOutcome.Buffered)
	require.NotNil(t, snap.LastScoreSent)
	assert.Equal(t, high, *snap.LastScoreSent)
}

func TestMostRecentBufferedResultWins(t *testing.T) {
	client := &fakeClient{}
	svc, reg := newTestService(t, client, RetryManual)

	svc.Submit(result("s1", low))
	svc.Submit(result("s2", high))
	require.Equal(t, "s2", svc.Snapshot().Pending.SessionID)

	reg.Connect("X", "")
	require.Len(t, client.submissions, 1)
	assert.Equal(t, 8, client.submissions[0].Skill1)
}

func TestOneRegistrationPerConnection(t *testing.T) {
	client := &fakeClient{}
	svc, reg := newTestService(t, client, RetryManual)

	reg.Connect("X", "")
	svc.Submit(result("s1", high))
	svc.Submit(result("s2", high))
	assert.Equal(t, []string{"X"}, client.registers)
	assert.Len(t, client.submissions, 2)

	reg.Connect("X", "")
	assert.Equal(t, []string{"X", "X"}, client.registers)
}

func TestSessionStartResetsLatch(t *testing.T) {
	client := &fakeClient{}
	svc, reg := newTestService(t, client, RetryManual)

	reg.Connect("X", "")
	svc.SessionStarted("s1")
	svc.SessionEnded(result("s1", high))
	assert.Equal(t, []string{"X", "X"}, client.registers)
	assert.Len(t, client.submissions, 1)
}

func TestDeliveryUsesLastKnownID(t *testing.T) {
	client := &fakeClient{}
	svc, reg := newTestService(t, client, RetryManual)

	reg.Connect("X", "")
	reg.Disconnect()
	assert.True(t, svc.Submit(result("s1", high)))
	require.Len(t, client.submissions, 1)
	assert.Equal(t, "X", client.submissions[0].NfcID)
}

func TestRejectedIsNotRetriedAutomatically(t *testing.T) {
	client := &fakeClient{submitCode: http.StatusForbidden}
	svc, reg := newTestService(t, client, RetryOnNextConnect)

	reg.Connect("X", "")
	svc.Submit(result("s1", high))

	snap := svc.Snapshot()
	require.NotNil(t, snap.LastOutcome)
	assert.Equal(t, model.DeliveryRejected, snap.LastOutcome.Status)
	assert.Equal(t, http.StatusForbidden, snap.LastOutcome.StatusCode)
	assert.Nil(t, snap.Pending)
	assert.Empty(t, client.fetches[1:], "no attribute fetch after a rejection")

	reg.Connect("X", "")
	assert.Len(t, client.submissions, 1)
}

func TestIncompleteThenManualRetry(t *testing.T) {
	client := &fakeClient{submitErr: errors.New("connection refused")}
	svc, reg := newTestService(t, client, RetryManual)

	assert.ErrorIs(t, svc.Retry(), ErrNothingToRetry)

	reg.Connect("X", "")
	svc.Submit(result("s1", high))
	snap := svc.Snapshot()
	require.NotNil(t, snap.LastOutcome)
	assert.Equal(t, model.DeliveryIncomplete, snap.LastOutcome.Status)
	assert.Contains(t, snap.LastOutcome.Err, "connection refused")
	assert.Nil(t, snap.Pending, "manual policy does not re-buffer")

	client.mu.Lock()
	client.submitErr = nil
	client.mu.Unlock()

	require.NoError(t, svc.Retry())
	require.Len(t, client.submissions, 2)
	assert.Equal(t, client.submissions[0], client.submissions[1])
	assert.Equal(t, model.DeliveryDelivered, svc.Snapshot().LastOutcome.Status)
}

func TestIncompleteRebuffersOnNextConnect(t *testing.T) {
	client := &fakeClient{submitCode: http.StatusInternalServerError}
	svc, reg := newTestService(t, client, RetryOnNextConnect)

	reg.Connect("X", "")
	svc.Submit(result("s1", high))
	require.NotNil(t, svc.Snapshot().Pending)
	assert.Len(t, client.submissions, 1, "no tight retry loop")

	client.mu.Lock()
	client.submitCode = http.StatusOK
	client.mu.Unlock()

	reg.Connect("X", "")
	assert.Len(t, client.submissions, 2)
	assert.Nil(t, svc.Snapshot().Pending)
}

func TestNewerDeliveryDropsRebufferedResult(t *testing.T) {
	client := &fakeClient{submitCode: http.StatusInternalServerError}
	svc, reg := newTestService(t, client, RetryOnNextConnect)

	reg.Connect("A", "")
	svc.Submit(result("old", low))
	require.NotNil(t, svc.Snapshot().Pending)

	client.mu.Lock()
	client.submitCode = http.StatusOK
	client.mu.Unlock()

	assert.True(t, svc.Submit(result("new", high)))
	assert.Nil(t, svc.Snapshot().Pending, "the newer result supersedes the buffered one")

	reg.Disconnect()
	reg.Connect("B", "")
	require.Len(t, client.submissions, 2, "the older result must not reach the next card")
	assert.Equal(t, identity.ScorePayload{NfcID: "A", GameID: model.GameID, Skill1: 8, Skill2: 7, Skill3: 6}, client.submissions[1])
	assert.Equal(t, "new", svc.Snapshot().LastOutcome.SessionID)
}

func TestRetryPrefersNewerBufferedResult(t *testing.T) {
	client := &fakeClient{submitErr: errors.New("connection refused")}
	svc, reg := newTestService(t, client, RetryManual)
	reg.Connect("X", "")

	client.onSubmit = func(identity.ScorePayload) {
		client.mu.Lock()
		client.onSubmit = nil
		client.submitErr = nil
		client.mu.Unlock()
		svc.Submit(result("s2", low))
	}
	var retryErr error
	retried := false
	svc.OnEvent("retry", func(ev Event) {
		if ev.Kind == EventOutcome && ev.SessionID == "s1" && !retried {
			retried = true
			retryErr = svc.Retry()
		}
	})

	svc.Submit(result("s1", high))

	require.True(t, retried)
	require.NoError(t, retryErr)
	require.Len(t, client.submissions, 2, "s1 is not re-sent while s2 is buffered")
	assert.Equal(t, 6, client.submissions[1].Skill1)
	snap := svc.Snapshot()
	assert.Nil(t, snap.Pending)
	require.NotNil(t, snap.LastOutcome)
	assert.Equal(t, "s2", snap.LastOutcome.SessionID)
	assert.Equal(t, model.DeliveryDelivered, snap.LastOutcome.Status)
}

func TestRetryWithoutCard(t *testing.T) {
	client := &fakeClient{submitErr: errors.New("down")}
	svc, _ := newTestService(t, client, RetryManual)
	svc.mu.Lock()
	r := result("s1", high)
	svc.last = &r
	svc.mu.Unlock()
	assert.ErrorIs(t, svc.Retry(), ErrNoCard)
}

func TestRetryWhileInFlight(t *testing.T) {
	client := &fakeClient{}
	reg := card.NewRegistry()
	var jobs []func()
	svc := New(client, reg, Options{
		Logger:   zerolog.Nop(),
		Executor: func(f func()) { jobs = append(jobs, f) },
	})
	t.Cleanup(func() {
		for _, job := range jobs {
			job()
		}
		svc.Close()
	})

	reg.Connect("X", "")
	jobs[0]()
	jobs = jobs[:0]

	assert.True(t, svc.Submit(result("s1", high)))
	assert.True(t, svc.Snapshot().InFlight)
	assert.False(t, svc.Submit(result("s2", high)), "queued behind the running delivery")

	svc.mu.Lock()
	r := result("s0", high)
	svc.last = &r
	svc.mu.Unlock()
	assert.ErrorIs(t, svc.Retry(), ErrInFlight)

	job := jobs[0]
	jobs = jobs[:0]
	job()
	require.Len(t, client.submissions, 2, "queued result drains after completion")
	assert.Nil(t, svc.Snapshot().Pending)
}

func TestAttributesCachedAndClearedOnDisconnect(t *testing.T) {
	client := &fakeClient{attrs: &model.CardAttributes{Empathy: 15, Creativity: 13, ProblemSolving: 11}}
	svc, reg := newTestService(t, client, RetryManual)
	var kinds []EventKind
	svc.OnEvent("test", func(ev Event) { kinds = append(kinds, ev.Kind) })

	reg.Connect("X", "")
	attrs := svc.Snapshot().Attributes
	require.NotNil(t, attrs)
	assert.Equal(t, 15, attrs.Empathy)
	assert.Equal(t, []EventKind{EventAttributes}, kinds)

	reg.Disconnect()
	assert.Nil(t, svc.Snapshot().Attributes)

	svc.Refresh()
	assert.Equal(t, []string{"X"}, client.fetches, "refresh needs a connected card")
}

func TestOutcomeEvents(t *testing.T) {
	client := &fakeClient{}
	svc, reg := newTestService(t, client, RetryManual)
	var outcomes []model.Outcome
	svc.OnEvent("journal", func(ev Event) {
		if ev.Kind == EventOutcome {
			outcomes = append(outcomes, *ev.Outcome)
		}
	})
	reg.Connect("X", "")
	svc.Submit(result("s1", high))
	require.Len(t, outcomes, 1)
	assert.Equal(t, "s1", outcomes[0].SessionID)
	assert.Equal(t, "X", outcomes[0].CardID)
	assert.Equal(t, model.DeliveryDelivered, outcomes[0].Status)
	assert.False(t, outcomes[0].Buffered)
}

func TestEndToEndWithIdentityServer(t *testing.T) {
	srv := identity.NewServer()
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	svc, reg := newTestService(t, identity.New(ts.URL, time.Second), RetryManual)
	svc.Submit(result("s1", high))
	reg.Connect("04AABB", "reader")

	assert.Equal(t, 1, srv.Submissions("04AABB", model.GameID))
	snap := svc.Snapshot()
	require.NotNil(t, snap.Attributes)
	assert.Equal(t, model.CardAttributes{NfcID: "04AABB", Empathy: 8, Creativity: 7, ProblemSolving: 6}, *snap.Attributes)
}
