package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeventeLantos/reels-scheduler/internal/model"
)

// FailureKind classifies where in the publish workflow a reel failed.
type FailureKind string

const (
	FailureContainerCreation FailureKind = "container_creation"
	FailureRemoteProcessing  FailureKind = "remote_processing"
	FailureProcessingTimeout FailureKind = "processing_timeout"
	FailurePublish           FailureKind = "publish"
)

// PublishFailure is the terminal outcome of a failed publish attempt. All
// kinds are terminal for the reel; there is no automatic retry.
type PublishFailure struct {
	Kind FailureKind
	Err  error
}

func (f *PublishFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *PublishFailure) Unwrap() error {
	return f.Err
}

// MediaClient is the remote publish platform seen from the workflow's side.
type MediaClient interface {
	CreateContainer(ctx context.Context, videoURL, caption string) (string, error)
	ContainerStatus(ctx context.Context, containerID string) (model.ContainerState, error)
	PublishContainer(ctx context.Context, containerID string) (string, error)
}

// Publisher drives one reel through the remote three-step workflow:
// create container, poll until transcoding finishes, publish. It holds no
// state across invocations and writes nothing to the store.
type Publisher struct {
	client       MediaClient
	pollInterval time.Duration
	maxAttempts  int
}

func NewPublisher(client MediaClient, pollInterval time.Duration, maxAttempts int) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("client must not be nil")
	}
	if pollInterval <= 0 {
		return nil, errors.New("pollInterval must be > 0")
	}
	if maxAttempts <= 0 {
		return nil, errors.New("maxAttempts must be > 0")
	}
	return &Publisher{
		client:       client,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
	}, nil
}

// Publish returns the platform's permanent media id on success. Every error
// it returns is a *PublishFailure.
func (p *Publisher) Publish(ctx context.Context, reel model.Reel) (string, error) {
	containerID, err := p.client.CreateContainer(ctx, reel.VideoURL, reel.Caption)
	if err != nil {
		return "", &PublishFailure{Kind: FailureContainerCreation, Err: err}
	}

	finished, err := pollUntil(ctx, p.pollInterval, p.maxAttempts, func(ctx context.Context) (bool, error) {
		state, err := p.client.ContainerStatus(ctx, containerID)
		if err != nil {
			return false, err
		}
		switch state {
		case model.ContainerInProgress:
			return false, nil
		case model.ContainerFinished:
			return true, nil
		default:
			return false, fmt.Errorf("remote processing failed: container %s state %s", containerID, state)
		}
	})
	if err != nil {
		return "", &PublishFailure{Kind: FailureRemoteProcessing, Err: err}
	}
	if !finished {
		return "", &PublishFailure{
			Kind: FailureProcessingTimeout,
			Err:  fmt.Errorf("container %s still in progress after %d polls", containerID, p.maxAttempts),
		}
	}

	mediaID, err := p.client.PublishContainer(ctx, containerID)
	if err != nil {
		return "", &PublishFailure{Kind: FailurePublish, Err: err}
	}
	return mediaID, nil
}

// pollUntil waits interval, then invokes fn, up to maxAttempts times. It
// returns (true, nil) as soon as fn reports done, (false, nil) when the
// attempt budget runs out, and fn's error as soon as one occurs. Context
// cancellation aborts the wait.
func pollUntil(ctx context.Context, interval time.Duration, maxAttempts int, fn func(context.Context) (bool, error)) (bool, error) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}

		done, err := fn(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}

		timer.Reset(interval)
	}
	return false, nil
}
