package service

import (
	"slices"
	"testing"
	"time"
)

func TestBuildHistogram_Empty(t *testing.T) {
	h := BuildHistogram(nil)
	if len(h.Buckets) != 0 {
		t.Fatalf("want empty histogram, got %+v", h)
	}
}

func TestBuildHistogram_BucketCount(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		n    int
		want int
	}{
		{1, 6},
		{18, 6},
		{19, 7},
		{45, 15},
		{300, 15},
	}
	for _, tc := range cases {
		ts := make([]time.Time, tc.n)
		for i := range ts {
			ts[i] = base.Add(time.Duration(i) * time.Second)
		}
		h := BuildHistogram(ts)
		if len(h.Buckets) != tc.want {
			t.Fatalf("n=%d: %d buckets, want %d", tc.n, len(h.Buckets), tc.want)
		}
		total := 0
		for _, b := range h.Buckets {
			total += b.Count
		}
		if total != tc.n {
			t.Fatalf("n=%d: buckets hold %d", tc.n, total)
		}
	}
}

func TestBuildHistogram_AllEqual(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h := BuildHistogram([]time.Time{at, at, at})
	if h.BucketWidthMs != 1 || h.Buckets[0].Count != 3 {
		t.Fatalf("unexpected histogram: %+v", h)
	}
	if !h.Buckets[0].Start.Equal(at) {
		t.Fatalf("first bucket must start at min: %v", h.Buckets[0].Start)
	}
}

func TestBuildHistogram_MaxLandsInLastBucket(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := []time.Time{base, base.Add(6 * time.Second)}
	h := BuildHistogram(ts)

	if h.BucketWidthMs != 1000 {
		t.Fatalf("width = %v, want 1000", h.BucketWidthMs)
	}
	if h.Buckets[0].Count != 1 || h.Buckets[5].Count != 1 {
		t.Fatalf("unexpected distribution: %+v", h.Buckets)
	}
}

func TestBuildHistogram_DeterministicAndOrderIndependent(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := []time.Time{
		base.Add(9 * time.Second),
		base,
		base.Add(1500 * time.Millisecond),
		base.Add(3 * time.Second),
		base.Add(7 * time.Second),
	}
	reversed := slices.Clone(ts)
	slices.Reverse(reversed)

	a, b := BuildHistogram(ts), BuildHistogram(reversed)
	if a.BucketWidthMs != b.BucketWidthMs || len(a.Buckets) != len(b.Buckets) {
		t.Fatalf("histograms differ: %+v vs %+v", a, b)
	}
	for i := range a.Buckets {
		if a.Buckets[i] != b.Buckets[i] {
			t.Fatalf("bucket %d differs: %+v vs %+v", i, a.Buckets[i], b.Buckets[i])
		}
	}
	if ts[0] != base.Add(9*time.Second) {
		t.Fatalf("input slice must not be reordered")
	}
}
