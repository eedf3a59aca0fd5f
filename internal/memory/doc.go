// Package memory keeps generation inside the container's memory budget.
//
// [ConfigureFromEnv] sets GOMEMLIMIT from the container limit, leaving room
// for ffmpeg and libvips which allocate outside the Go heap. It reads:
//
//   - GOMEMLIMIT: used as is when set.
//   - MEMORY_LIMIT: container limit in bytes, usually from the Kubernetes
//     Downward API (resources.limits.memory).
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap, 0 < r <= 1.
//     Defaults to 0.85.
//
// A [Monitor] samples heap allocation against that limit. Above the
// critical mark it pauses: [Monitor.Wait] blocks new segment renders until
// usage falls below the high-water mark again, for at most MaxWait.
package memory
