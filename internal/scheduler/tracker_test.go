package scheduler

import (
	"fmt"
	"sync"
	"testing"
)

func TestTracker_AllSatisfied(t *testing.T) {
	tr := NewTracker()

	tests := []struct {
		name string
		ids  []string
		want bool
	}{
		{name: "empty list is satisfied", ids: nil, want: true},
		{name: "unknown id", ids: []string{"terrain"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.AllSatisfied(tt.ids); got != tt.want {
				t.Errorf("AllSatisfied(%v) = %v, want %v", tt.ids, got, tt.want)
			}
		})
	}

	tr.MarkCompleted("terrain")
	tr.MarkCompleted("sky")

	if !tr.AllSatisfied([]string{"terrain", "sky"}) {
		t.Error("expected terrain and sky to be satisfied")
	}
	if tr.AllSatisfied([]string{"terrain", "water"}) {
		t.Error("partial set must not be satisfied")
	}
}

func TestTracker_MarkCompletedIdempotent(t *testing.T) {
	tr := NewTracker()
	tr.MarkCompleted("a")
	tr.MarkCompleted("a")

	if got := tr.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.MarkCompleted(fmt.Sprintf("%d-%d", i, j))
				_ = tr.AllSatisfied([]string{fmt.Sprintf("%d-0", i)})
			}
		}(i)
	}
	wg.Wait()

	if got := tr.Len(); got != 1600 {
		t.Errorf("Len() = %d, want 1600", got)
	}
}
