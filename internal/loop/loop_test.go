package loop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtmsg/internal/rmw"
	"github.com/roach88/rtmsg/internal/rmw/memrmw"
	"github.com/roach88/rtmsg/internal/testutil"
)

const eventually = 2 * time.Second

type typeName string

func (n typeName) TypeName() string { return string(n) }
func (typeName) Size() int          { return 0 }
func (typeName) Align() int         { return 1 }

type recordingSubscriber struct {
	sub rmw.Subscription

	mu  sync.Mutex
	got []string
}

func (s *recordingSubscriber) Subscription() rmw.Subscription { return s.sub }

func (s *recordingSubscriber) TryHandleMessage() {
	for {
		b, ok, err := s.sub.Take()
		if err != nil || !ok {
			return
		}
		s.mu.Lock()
		s.got = append(s.got, string(b))
		s.mu.Unlock()
	}
}

func (s *recordingSubscriber) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

type recordingClient struct {
	cl rmw.Client

	mu  sync.Mutex
	got map[int64]string
}

func (c *recordingClient) Client() rmw.Client { return c.cl }

func (c *recordingClient) TryHandleAnswer() {
	for {
		seq, b, ok, err := c.cl.TakeResponse()
		if err != nil || !ok {
			return
		}
		c.mu.Lock()
		c.got[seq] = string(b)
		c.mu.Unlock()
	}
}

func (c *recordingClient) answers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

type fixture struct {
	rt   *testutil.RecordingRuntime
	mem  *memrmw.Runtime
	loop *Loop
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := memrmw.New(memrmw.WithLogger(logger))
	rt := testutil.NewRecordingRuntime(mem)
	fatal := func(err error) { t.Errorf("unexpected fatal error: %v", err) }
	l, err := New(rt, append([]Option{WithLogger(logger), WithFatalHandler(fatal)}, opts...)...)
	require.NoError(t, err)
	return &fixture{rt: rt, mem: mem, loop: l}
}

func (f *fixture) subscriber(t *testing.T, topic string) *recordingSubscriber {
	t.Helper()
	sub, err := f.rt.CreateSubscription(topic, typeName("demo/T"))
	require.NoError(t, err)
	return &recordingSubscriber{sub: sub}
}

func (f *fixture) publisher(t *testing.T, topic string) rmw.Publisher {
	t.Helper()
	pub, err := f.rt.CreatePublisher(topic, typeName("demo/T"))
	require.NoError(t, err)
	return pub
}

// start runs the loop and returns a function that stops it and returns
// Run's result.
func (f *fixture) start(t *testing.T) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.loop.Run(ctx) }()
	t.Cleanup(cancel)
	return func() error {
		f.loop.Stop()
		select {
		case err := <-errc:
			return err
		case <-time.After(eventually):
			t.Fatal("loop did not stop")
			return nil
		}
	}
}

func TestLoop_DeliversMessages(t *testing.T) {
	f := newFixture(t)
	s := f.subscriber(t, "chatter")
	f.loop.RegisterSubscriber(s)
	pub := f.publisher(t, "chatter")
	stop := f.start(t)

	require.NoError(t, pub.Publish([]byte("one")))
	require.NoError(t, pub.Publish([]byte("two")))

	require.Eventually(t, func() bool { return len(s.received()) == 2 }, eventually, time.Millisecond)
	assert.Equal(t, []string{"one", "two"}, s.received())
	require.NoError(t, stop())
}

func TestLoop_WakeOnRegister(t *testing.T) {
	f := newFixture(t)
	stop := f.start(t)

	// The loop is now blocked on a wait set holding only the guard.
	<-f.rt.WaitEntered

	s := f.subscriber(t, "late")
	f.loop.RegisterSubscriber(s)

	require.Eventually(t, func() bool {
		_, ok := f.rt.Find("wait_set_add_subscription", s.sub.GID())
		return ok
	}, eventually, time.Millisecond)

	// Nothing but the wake signal was needed for the new subscriber to be
	// waited on; a publish now is delivered.
	require.NoError(t, f.publisher(t, "late").Publish([]byte("hello")))
	require.Eventually(t, func() bool { return len(s.received()) == 1 }, eventually, time.Millisecond)
	require.NoError(t, stop())
}

func TestLoop_DeferredFinalize(t *testing.T) {
	f := newFixture(t)
	s := f.subscriber(t, "t")
	f.loop.RegisterSubscriber(s)
	f.rt.Gate()
	stop := f.start(t)

	// Wait until a wait that references s is in flight and held open.
	require.Eventually(t, func() bool {
		_, ok := f.rt.Find("wait_set_add_subscription", s.sub.GID())
		return ok
	}, eventually, time.Millisecond)
	<-f.rt.WaitEntered

	f.loop.UnregisterSubscriber(s)
	f.loop.FinalizeSubscription(s.sub)

	time.Sleep(20 * time.Millisecond)
	_, finalized := f.rt.Find("finalize_subscription", s.sub.GID())
	assert.False(t, finalized, "subscription destroyed while a wait referenced it")
	assert.True(t, s.sub.IsValid())

	f.rt.Release()
	require.Eventually(t, func() bool { return f.loop.Stats().FinalizedSubscriptions == 1 }, eventually, time.Millisecond)

	fin, ok := f.rt.Find("finalize_subscription", s.sub.GID())
	require.True(t, ok)
	require.NoError(t, fin.Err)
	waitEnd, ok := f.rt.Find("wait_end", rmw.GID{})
	require.True(t, ok)
	assert.Greater(t, fin.Seq, waitEnd.Seq)
	assert.False(t, s.sub.IsValid())
	assert.Zero(t, f.loop.Stats().FinalizeErrors)

	require.NoError(t, stop())
}

func TestLoop_StopDrainsPendingFinalize(t *testing.T) {
	f := newFixture(t)
	s := f.subscriber(t, "t")
	f.loop.RegisterSubscriber(s)
	f.rt.Gate()
	stop := f.start(t)
	<-f.rt.WaitEntered

	f.loop.UnregisterSubscriber(s)
	f.loop.FinalizeSubscription(s.sub)
	f.loop.Stop()
	f.rt.Release()

	require.NoError(t, stop())
	assert.False(t, s.sub.IsValid())
	assert.Equal(t, int64(1), f.loop.Stats().FinalizedSubscriptions)

	_, ok := f.rt.Find("finalize_guard_condition", rmw.GID{})
	assert.True(t, ok)

	// After shutdown there is no wait to race, so teardown is inline.
	late := f.subscriber(t, "t")
	f.loop.FinalizeSubscription(late.sub)
	assert.False(t, late.sub.IsValid())
}

func TestLoop_ContextCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.loop.Run(ctx) }()

	<-f.rt.WaitEntered
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(eventually):
		t.Fatal("loop did not stop on cancel")
	}
	<-f.loop.Done()
	assert.ErrorIs(t, f.loop.Run(context.Background()), ErrAlreadyRunning)
}

func TestLoop_SkipsInvalidEntities(t *testing.T) {
	f := newFixture(t)
	dead := f.subscriber(t, "dead")
	require.NoError(t, f.mem.FinalizeSubscription(dead.sub))
	live := f.subscriber(t, "live")
	f.loop.RegisterSubscriber(dead)
	f.loop.RegisterSubscriber(live)
	stop := f.start(t)

	require.NoError(t, f.publisher(t, "live").Publish([]byte("x")))
	require.Eventually(t, func() bool { return len(live.received()) == 1 }, eventually, time.Millisecond)

	_, added := f.rt.Find("wait_set_add_subscription", dead.sub.GID())
	assert.False(t, added)
	require.NoError(t, stop())
}

func TestLoop_FinalizeFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	s := f.subscriber(t, "t")
	require.NoError(t, f.mem.FinalizeSubscription(s.sub))
	stop := f.start(t)

	f.loop.FinalizeSubscription(s.sub)
	require.Eventually(t, func() bool { return f.loop.Stats().FinalizeErrors == 1 }, eventually, time.Millisecond)
	require.NoError(t, stop())
}

func TestLoop_ClientAnswers(t *testing.T) {
	f := newFixture(t)
	req, resp := typeName("demo/EchoRequest"), typeName("demo/EchoResponse")
	_, err := f.rt.CreateService("echo", req, resp, func(b []byte) ([]byte, error) { return b, nil })
	require.NoError(t, err)
	cl, err := f.rt.CreateClient("echo", req, resp)
	require.NoError(t, err)

	c := &recordingClient{cl: cl, got: map[int64]string{}}
	f.loop.RegisterClient(c)
	stop := f.start(t)

	for _, s := range []string{"a", "b", "c"} {
		_, err := cl.SendRequest([]byte(s))
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return c.answers() == 3 }, eventually, time.Millisecond)

	f.loop.UnregisterClient(c)
	f.loop.FinalizeClient(cl)
	require.Eventually(t, func() bool { return f.loop.Stats().FinalizedClients == 1 }, eventually, time.Millisecond)
	require.NoError(t, stop())
	require.NoError(t, f.mem.Close())
}

func TestLoop_FatalWaitSet(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := testutil.NewRecordingRuntime(memrmw.New())
	rt.FailWaitSet = errors.New("out of wait sets")

	var fatal error
	l, err := New(rt, WithLogger(logger), WithFatalHandler(func(err error) { fatal = err }))
	require.NoError(t, err)

	err = l.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, fatal, rt.FailWaitSet)
	assert.Equal(t, fatal, err)
}

func TestLoop_CloseWithoutRun(t *testing.T) {
	f := newFixture(t)
	s := f.subscriber(t, "t")
	f.loop.FinalizeSubscription(s.sub)

	f.loop.Close()
	assert.False(t, s.sub.IsValid())
	assert.ErrorIs(t, f.loop.Run(context.Background()), ErrAlreadyRunning)
	<-f.loop.Done()
}
