package instance

import "context"

// Compute defines the compute control plane operations the handlers need
type Compute interface {
	// Describe returns the current snapshot of one instance, or ErrNotFound
	Describe(ctx context.Context, id string) (*Instance, error)

	// DescribeByTag returns live instances carrying key with any of values
	DescribeByTag(ctx context.Context, key string, values []string) ([]*Instance, error)

	// Start starts the given instances. Starting a running instance succeeds.
	Start(ctx context.Context, ids []string) (BatchResult, error)

	// Stop stops the given instances. Stopping a stopped instance succeeds.
	Stop(ctx context.Context, ids []string) (BatchResult, error)

	// Tag sets tags on the given instances, overwriting existing values
	Tag(ctx context.Context, ids []string, tags []Tag) error
}
