package correlator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
	onPublish func(correlationID string)
}

func (p *fakePublisher) PublishQuestion(ctx context.Context, ev models.QuestionEvent, correlationID string) error {
	p.mu.Lock()
	p.published = append(p.published, correlationID)
	p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.onPublish != nil {
		p.onPublish(correlationID)
	}
	return nil
}

func TestSend_ResolvedResponse(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, zap.NewNop())
	pub.onPublish = func(id string) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			c.Resolve(id, []byte(`{"answer":"hi"}`))
		}()
	}

	body, err := c.Send(context.Background(), models.QuestionEvent{UserID: "u", Question: "q"}, "corr-1", time.Second)
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if string(body) != `{"answer":"hi"}` {
		t.Errorf("body=%s", body)
	}
	if c.Pending() != 0 {
		t.Errorf("pending=%d after resolution", c.Pending())
	}
}

func TestSend_Timeout(t *testing.T) {
	c := New(&fakePublisher{}, zap.NewNop())
	_, err := c.Send(context.Background(), models.QuestionEvent{}, "corr-t", 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if c.Pending() != 0 {
		t.Errorf("pending entry not removed on timeout")
	}
	// A response arriving after the timeout resolves nothing and raises nothing.
	if c.Resolve("corr-t", []byte("late")) {
		t.Error("late response should be discarded")
	}
}

func TestResolve_ExactlyOnce(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, zap.NewNop())

	first := make(chan bool, 1)
	second := make(chan bool, 1)
	pub.onPublish = func(id string) {
		go func() {
			first <- c.Resolve(id, []byte("one"))
			second <- c.Resolve(id, []byte("two"))
		}()
	}

	body, err := c.Send(context.Background(), models.QuestionEvent{}, "corr-once", time.Second)
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if string(body) != "one" {
		t.Errorf("waiter observed %q, want the first response", body)
	}
	if !<-first {
		t.Error("first response should resolve the waiter")
	}
	if <-second {
		t.Error("second response should be discarded")
	}
}

func TestResolve_UnknownIDIsNoop(t *testing.T) {
	c := New(&fakePublisher{}, zap.NewNop())
	if c.Resolve("never-registered", []byte("x")) {
		t.Error("unknown correlation id should be a no-op")
	}
}

func TestSend_DuplicateCorrelationID(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, zap.NewNop())

	release := make(chan struct{})
	go func() {
		_, _ = c.Send(context.Background(), models.QuestionEvent{}, "corr-dup", time.Second)
		close(release)
	}()
	// Wait until the first request is registered and published.
	for i := 0; i < 100 && c.Pending() == 0; i++ {
		time.Sleep(time.Millisecond)
	}

	if _, err := c.Send(context.Background(), models.QuestionEvent{}, "corr-dup", time.Second); err == nil {
		t.Error("reusing a live correlation id should fail")
	}
	c.Resolve("corr-dup", []byte("done"))
	<-release
}

func TestSend_PublishFailureRemovesEntry(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := New(pub, zap.NewNop())
	if _, err := c.Send(context.Background(), models.QuestionEvent{}, "corr-p", time.Second); err == nil {
		t.Fatal("expected publish error")
	}
	if c.Pending() != 0 {
		t.Errorf("pending=%d", c.Pending())
	}
}

func TestSend_ContextCancelled(t *testing.T) {
	c := New(&fakePublisher{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, err := c.Send(ctx, models.QuestionEvent{}, "corr-c", time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if c.Pending() != 0 {
		t.Errorf("pending=%d", c.Pending())
	}
}

func TestDrain_FailsWaitersAndRejectsNew(t *testing.T) {
	c := New(&fakePublisher{}, zap.NewNop())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), models.QuestionEvent{}, "corr-d", 5*time.Second)
		errCh <- err
	}()
	for i := 0; i < 100 && c.Pending() == 0; i++ {
		time.Sleep(time.Millisecond)
	}

	c.Drain()
	if err := <-errCh; !errors.Is(err, ErrDraining) {
		t.Errorf("waiter got %v, want ErrDraining", err)
	}
	if _, err := c.Send(context.Background(), models.QuestionEvent{}, "corr-after", time.Second); !errors.Is(err, ErrDraining) {
		t.Errorf("post-drain send got %v, want ErrDraining", err)
	}
}

func TestSend_ConcurrentRequestsIndependent(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, zap.NewNop())
	pub.onPublish = func(id string) {
		go func() {
			time.Sleep(5 * time.Millisecond)
			c.Resolve(id, []byte(id))
		}()
	}

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			body, err := c.Send(context.Background(), models.QuestionEvent{UserID: id}, id, time.Second)
			if err != nil {
				t.Errorf("Send(%s) error: %v", id, err)
				return
			}
			if string(body) != id {
				t.Errorf("Send(%s) got body %q", id, body)
			}
		}(id)
	}
	wg.Wait()
}
