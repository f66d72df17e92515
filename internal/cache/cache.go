package cache

import (
	"context"
	"time"
)

type PublishedCache interface {
	StorePublished(ctx context.Context, reelID, instagramMediaID string, publishedAt time.Time) error
}
