// internal/automation/claim.go
package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claimer hands out send claims. The delivery log's read-then-check dedup
// leaves a window where two overlapping runs both see "not sent"; a claim
// backed by an atomic create-if-absent closes it.
type Claimer interface {
	// Claim returns true when this run owns the send for the key.
	Claim(ctx context.Context, templateSlug, eventID, email string) (bool, error)
	// Release frees a claim after a failed send so a later run can retry.
	Release(ctx context.Context, templateSlug, eventID, email string) error
}

// RedisClaimer implements Claimer with SET NX and a TTL, so a crashed run
// cannot hold a claim forever.
type RedisClaimer struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClaimer(client *redis.Client, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{client: client, ttl: ttl}
}

func claimKey(templateSlug, eventID, email string) string {
	return fmt.Sprintf("send-claim:%s:%s:%s", templateSlug, eventID, strings.ToLower(email))
}

func (c *RedisClaimer) Claim(ctx context.Context, templateSlug, eventID, email string) (bool, error) {
	return c.client.SetNX(ctx, claimKey(templateSlug, eventID, email), 1, c.ttl).Result()
}

func (c *RedisClaimer) Release(ctx context.Context, templateSlug, eventID, email string) error {
	return c.client.Del(ctx, claimKey(templateSlug, eventID, email)).Err()
}

// NoopClaimer always grants the claim. Used when redis is disabled; the
// delivery log alone then bounds duplicates, which is the documented
// risk of overlapping runs.
type NoopClaimer struct{}

func (NoopClaimer) Claim(context.Context, string, string, string) (bool, error) { return true, nil }
func (NoopClaimer) Release(context.Context, string, string, string) error      { return nil }
