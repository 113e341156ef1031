// Package prefetch implements the adaptive prefetch scheduler for wizard
// step resources.
//
// The scheduler decides, continuously and without being asked, which
// downstream step's bundles to preload, when to attempt it, how hard to
// retry on failure, and how to degrade gracefully without ever blocking
// actual navigation.
//
// Key pieces:
//   - StreamRegistry: tracks active AI-streaming sessions and for how long
//   - ConditionProbe: reports network class, save-data flag, and idle budget
//   - BehaviorTracker: records step transitions and predicts the next step
//   - FailureLedger: per-resource consecutive failures and cooldown expiry
//   - Executor: performs one load attempt with timeout and failure classification
//   - Scheduler: orchestrates admission, priority, retry/backoff, and fallback
//
// All state is held in explicit objects passed by reference; there are no
// package-level registries. Prefetch failures are fully contained: Request
// always resolves to a loaded resource, a cached one, a skip, or a fallback
// marker telling the consumer to load synchronously at the point of use.
package prefetch
