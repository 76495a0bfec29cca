package domain

import "context"

type idempotencyKeyCtx struct{}

// WithIdempotencyKey tags ctx so gateway requests carry an
// X-Idempotency-Key header. The sync engine uses the pending change's
// client-generated id, giving the server a handle to dedupe replays.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKey extracts the key set by WithIdempotencyKey, if any.
func IdempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}
