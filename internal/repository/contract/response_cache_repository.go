// Durable tier of the OpenDota response cache
package contract

import "context"

// ResponseCacheRepository stores raw upstream response bodies keyed by
// request path.
type ResponseCacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
	// Flush persists buffered writes. Implementations that write through
	// may treat it as a no-op.
	Flush(ctx context.Context) error
}
