package workers

import "runtime"

// Kind describes how a task spends its time.
type Kind int

const (
	// CPU is compute bound work such as x264 encoding.
	CPU Kind = iota
	// Mixed alternates decoding with disk reads, like thumbnail renders.
	Mixed
	// IO mostly waits on disks or the network.
	IO
)

func (k Kind) perCPU() float64 {
	switch k {
	case Mixed:
		return 1.5
	case IO:
		return 2
	default:
		return 1
	}
}

// For sizes a pool for kind from GOMAXPROCS, which tracks the container
// CPU quota. The result is at least 1 and at most limit when limit > 0.
func For(kind Kind, limit int) int {
	return Count(kind.perCPU(), limit)
}

// Count returns GOMAXPROCS * multiplier clamped to [1, limit]. A limit of 0
// means uncapped.
func Count(multiplier float64, limit int) int {
	n := max(1, int(float64(runtime.GOMAXPROCS(0))*multiplier))
	if limit > 0 {
		n = min(n, limit)
	}
	return n
}

// Pick returns configured when it is positive, capped at limit, and
// otherwise auto(limit). It lets an operator setting such as
// ENCODER_THREADS override the CPU-based default.
func Pick(configured, limit int, auto func(limit int) int) int {
	if configured <= 0 {
		return auto(limit)
	}
	if limit > 0 {
		return min(configured, limit)
	}
	return configured
}

// ForCPU sizes CPU-bound work; it fits Pick's auto argument.
func ForCPU(limit int) int { return For(CPU, limit) }

// ForMixed sizes mixed CPU and disk work.
func ForMixed(limit int) int { return For(Mixed, limit) }
