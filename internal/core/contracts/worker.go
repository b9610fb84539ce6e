package contracts

import "context"

type AsyncWorker interface {
	// Run blocks until ctx is cancelled
	Run(ctx context.Context) error
}
