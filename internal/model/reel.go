package model

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
)

// ContainerState is the remote platform's processing state for a media
// container, as reported by the status_code field.
type ContainerState string

const (
	ContainerInProgress ContainerState = "IN_PROGRESS"
	ContainerFinished   ContainerState = "FINISHED"
	ContainerError      ContainerState = "ERROR"
)

// Reel is the unit of scheduled work. ScheduledAt is nil until the
// assignment job picks a publish time; InstagramMediaID is set only on
// publish, LastError only on failure.
type Reel struct {
	ID               string
	VideoURL         string
	Caption          string
	ScheduledAt      *time.Time
	Status           Status
	InstagramMediaID *string
	LastError        *string
	PublishedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
