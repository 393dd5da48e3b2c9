// Package retry implements bounded retries with linear backoff.
//
// A Policy holds the attempt budget and the base interval. Run executes an
// operation up to Policy.MaxAttempts times:
//
//   - success returns immediately, without further attempts or delays
//   - an error the Classifier rejects is returned untouched (fatal)
//   - an error the Classifier accepts is recorded, logged, and followed by a
//     delay of BaseInterval * attempt before the next attempt
//
// When every attempt fails with a retryable error, Run returns an
// *ExhaustedError carrying the attempt count and the last error.
//
// # Example Usage
//
//	policy, err := retry.NewPolicy(3, 10*time.Second)
//	if err != nil {
//	    return err
//	}
//	value, err := retry.Run(ctx, func(ctx context.Context) (string, error) {
//	    return fetch(ctx)
//	}, policy, retry.Any(retry.IsTimeout, retry.MessageContains(retry.DefaultTransientMessages...)))
package retry
