package memory

import (
	"math"
	"testing"
)

type fakeLimit struct {
	current int64
	set     []int64
}

func (f *fakeLimit) setLimit(n int64) int64 {
	prev := f.current
	if n >= 0 {
		f.current = n
		f.set = append(f.set, n)
	}
	return prev
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		want       ConfigResult
		wantSetTo  int64
		wantNotSet bool
	}{
		{
			name:       "nothing set",
			env:        map[string]string{},
			want:       ConfigResult{Source: "none"},
			wantNotSet: true,
		},
		{
			name:       "GOMEMLIMIT wins",
			env:        map[string]string{"GOMEMLIMIT": "400MiB", "MEMORY_LIMIT": "1073741824"},
			want:       ConfigResult{Configured: true, Source: "GOMEMLIMIT", GoMemLimit: 400 << 20},
			wantNotSet: true,
		},
		{
			name:      "container limit with default ratio",
			env:       map[string]string{"MEMORY_LIMIT": "1000000"},
			want:      ConfigResult{Configured: true, Source: "MEMORY_LIMIT", ContainerLimit: 1000000, GoMemLimit: 850000, Ratio: 0.85},
			wantSetTo: 850000,
		},
		{
			name:      "custom ratio",
			env:       map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "0.5"},
			want:      ConfigResult{Configured: true, Source: "MEMORY_LIMIT", ContainerLimit: 1000000, GoMemLimit: 500000, Ratio: 0.5},
			wantSetTo: 500000,
		},
		{
			name:      "ratio out of range",
			env:       map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "1.5"},
			want:      ConfigResult{Configured: true, Source: "MEMORY_LIMIT", ContainerLimit: 1000000, GoMemLimit: 850000, Ratio: 0.85},
			wantSetTo: 850000,
		},
		{
			name:      "ratio not a number",
			env:       map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "most"},
			want:      ConfigResult{Configured: true, Source: "MEMORY_LIMIT", ContainerLimit: 1000000, GoMemLimit: 850000, Ratio: 0.85},
			wantSetTo: 850000,
		},
		{
			name:       "invalid limit",
			env:        map[string]string{"MEMORY_LIMIT": "1Gi"},
			want:       ConfigResult{Source: "none"},
			wantNotSet: true,
		},
		{
			name:       "negative limit",
			env:        map[string]string{"MEMORY_LIMIT": "-5"},
			want:       ConfigResult{Source: "none"},
			wantNotSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit := &fakeLimit{current: math.MaxInt64}
			if _, ok := tt.env["GOMEMLIMIT"]; ok {
				limit.current = 400 << 20
			}

			got := configure(func(k string) string { return tt.env[k] }, limit.setLimit)
			if got != tt.want {
				t.Errorf("configure() = %+v, want %+v", got, tt.want)
			}
			if tt.wantNotSet && len(limit.set) != 0 {
				t.Errorf("limit set to %v", limit.set)
			}
			if !tt.wantNotSet && (len(limit.set) != 1 || limit.set[0] != tt.wantSetTo) {
				t.Errorf("limit set to %v, want [%d]", limit.set, tt.wantSetTo)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{850 << 20, "850.0 MiB"},
		{2 << 30, "2.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
