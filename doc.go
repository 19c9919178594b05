// Package backstop is a client-side resilience layer for calls against a
// remote backend. Every call runs under a per-service circuit breaker, a
// sliding-window rate limiter, a priority request queue with bounded
// concurrency, and a retry policy with capped exponential backoff; results
// flow through a TTL cache with pluggable read strategies, and failures
// through an ordered chain of recovery strategies: retry, credential
// refresh, cache fallback, offline execution, graceful degradation.
//
// Construct one Client per process, start it, and route backend calls
// through Do or Execute:
//
//	client, err := backstop.New(nil,
//		backstop.WithProbe(pingBackend),
//		backstop.WithRefresher(refreshSession),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	client.Start(ctx)
//	defer client.Stop(context.Background())
//
//	feed, err := backstop.Execute(ctx, client, backstop.Request{
//		Service:   "social",
//		Operation: "feed",
//		Subject:   userID,
//		CacheKey:  "social:feed:" + userID,
//	}, fetchFeed)
//
// Callers always receive a structured error; panics and raw transport
// failures never cross the boundary.
package backstop
