package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LeventeLantos/reels-scheduler/internal/model"
)

// fakeMediaClient scripts the remote workflow. statusSeq is consumed one
// state per poll; when it runs out the last state repeats.
type fakeMediaClient struct {
	createID  string
	createErr error

	statusSeq []model.ContainerState
	statusErr error

	publishID  string
	publishErr error

	createCalls  atomic.Int64
	statusCalls  atomic.Int64
	publishCalls atomic.Int64
}

func (f *fakeMediaClient) CreateContainer(ctx context.Context, videoURL, caption string) (string, error) {
	f.createCalls.Add(1)
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createID, nil
}

func (f *fakeMediaClient) ContainerStatus(ctx context.Context, containerID string) (model.ContainerState, error) {
	n := int(f.statusCalls.Add(1)) - 1
	if f.statusErr != nil {
		return "", f.statusErr
	}
	if n >= len(f.statusSeq) {
		n = len(f.statusSeq) - 1
	}
	return f.statusSeq[n], nil
}

func (f *fakeMediaClient) PublishContainer(ctx context.Context, containerID string) (string, error) {
	f.publishCalls.Add(1)
	if f.publishErr != nil {
		return "", f.publishErr
	}
	return f.publishID, nil
}

func testReel() model.Reel {
	return model.Reel{ID: "r1", VideoURL: "https://x/a.mp4", Caption: "hello"}
}

func newTestPublisher(t *testing.T, c MediaClient, maxAttempts int) *Publisher {
	t.Helper()

	p, err := NewPublisher(c, time.Millisecond, maxAttempts)
	if err != nil {
		t.Fatalf("NewPublisher returned error: %v", err)
	}
	return p
}

func TestNewPublisher_InvalidArgs(t *testing.T) {
	t.Parallel()

	if _, err := NewPublisher(nil, time.Second, 20); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewPublisher(&fakeMediaClient{}, 0, 20); err == nil {
		t.Fatalf("expected error for non-positive interval")
	}
	if _, err := NewPublisher(&fakeMediaClient{}, time.Second, 0); err == nil {
		t.Fatalf("expected error for non-positive maxAttempts")
	}
}

func TestPublisher_SuccessAfterPolling(t *testing.T) {
	t.Parallel()

	c := &fakeMediaClient{
		createID: "C1",
		statusSeq: []model.ContainerState{
			model.ContainerInProgress,
			model.ContainerInProgress,
			model.ContainerFinished,
		},
		publishID: "M1",
	}
	p := newTestPublisher(t, c, 20)

	mediaID, err := p.Publish(context.Background(), testReel())
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if mediaID != "M1" {
		t.Fatalf("expected media id M1, got %q", mediaID)
	}

	if got := c.statusCalls.Load(); got != 3 {
		t.Fatalf("expected 3 status polls, got %d", got)
	}
	if got := c.publishCalls.Load(); got != 1 {
		t.Fatalf("expected 1 publish call, got %d", got)
	}
}

func TestPublisher_ContainerCreationFailure(t *testing.T) {
	t.Parallel()

	c := &fakeMediaClient{createErr: errors.New("Invalid parameter")}
	p := newTestPublisher(t, c, 20)

	_, err := p.Publish(context.Background(), testReel())
	assertFailureKind(t, err, FailureContainerCreation)

	if got := c.statusCalls.Load(); got != 0 {
		t.Fatalf("expected no status polls after create failure, got %d", got)
	}
}

func TestPublisher_RemoteProcessingFailure(t *testing.T) {
	t.Parallel()

	c := &fakeMediaClient{
		createID:  "C1",
		statusSeq: []model.ContainerState{model.ContainerInProgress, model.ContainerError},
	}
	p := newTestPublisher(t, c, 20)

	_, err := p.Publish(context.Background(), testReel())
	assertFailureKind(t, err, FailureRemoteProcessing)

	if got := c.publishCalls.Load(); got != 0 {
		t.Fatalf("expected no publish call, got %d", got)
	}
}

func TestPublisher_PollTransportErrorIsRemoteProcessing(t *testing.T) {
	t.Parallel()

	c := &fakeMediaClient{
		createID:  "C1",
		statusErr: errors.New("connection reset"),
	}
	p := newTestPublisher(t, c, 20)

	_, err := p.Publish(context.Background(), testReel())
	assertFailureKind(t, err, FailureRemoteProcessing)
}

func TestPublisher_TimeoutAfterExactAttemptBudget(t *testing.T) {
	t.Parallel()

	const maxAttempts = 20

	c := &fakeMediaClient{
		createID:  "C1",
		statusSeq: []model.ContainerState{model.ContainerInProgress},
	}
	p := newTestPublisher(t, c, maxAttempts)

	_, err := p.Publish(context.Background(), testReel())
	assertFailureKind(t, err, FailureProcessingTimeout)

	if got := c.statusCalls.Load(); got != maxAttempts {
		t.Fatalf("expected exactly %d status polls, got %d", maxAttempts, got)
	}
	if got := c.publishCalls.Load(); got != 0 {
		t.Fatalf("expected no publish call after timeout, got %d", got)
	}
}

func TestPublisher_PublishFailure(t *testing.T) {
	t.Parallel()

	c := &fakeMediaClient{
		createID:   "C1",
		statusSeq:  []model.ContainerState{model.ContainerFinished},
		publishErr: errors.New("publish denied"),
	}
	p := newTestPublisher(t, c, 20)

	_, err := p.Publish(context.Background(), testReel())
	assertFailureKind(t, err, FailurePublish)
}

func TestPollUntil_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pollUntil(ctx, time.Hour, 5, func(context.Context) (bool, error) {
		t.Fatalf("fn must not run after cancellation")
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPublishFailure_ErrorText(t *testing.T) {
	t.Parallel()

	cause := errors.New("Invalid parameter")
	pf := &PublishFailure{Kind: FailureContainerCreation, Err: cause}

	want := fmt.Sprintf("%s: %v", FailureContainerCreation, cause)
	if pf.Error() != want {
		t.Fatalf("expected %q, got %q", want, pf.Error())
	}
	if !errors.Is(pf, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
}

func assertFailureKind(t *testing.T, err error, want FailureKind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	var pf *PublishFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected *PublishFailure, got %T: %v", err, err)
	}
	if pf.Kind != want {
		t.Fatalf("expected failure kind %q, got %q (err=%v)", want, pf.Kind, err)
	}
}
