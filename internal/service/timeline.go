package service

import (
	"math"
	"slices"
	"time"
)

const (
	minHistogramBuckets = 6
	maxHistogramBuckets = 15
)

type HistogramBucket struct {
	Start time.Time
	End   time.Time
	Count int
}

type Histogram struct {
	BucketWidthMs float64
	Buckets       []HistogramBucket
}

// BuildHistogram раскладывает моменты ответов по корзинам:
// count = clamp(ceil(n/3), 6, 15), ширина = (max-min)/count, либо 1 мс,
// если все моменты совпали. Последняя корзина включает max.
// Порядок входа не важен; одинаковый вход даёт одинаковый результат.
func BuildHistogram(ts []time.Time) Histogram {
	if len(ts) == 0 {
		return Histogram{Buckets: []HistogramBucket{}}
	}

	ms := make([]int64, len(ts))
	for i, t := range ts {
		ms[i] = t.UnixMilli()
	}
	slices.Sort(ms)
	first, last := ms[0], ms[len(ms)-1]

	count := int(math.Ceil(float64(len(ms)) / 3))
	count = min(max(count, minHistogramBuckets), maxHistogramBuckets)

	width := float64(last-first) / float64(count)
	if last == first {
		width = 1
	}

	buckets := make([]HistogramBucket, count)
	for i := range buckets {
		buckets[i].Start = msTime(float64(first) + float64(i)*width)
		buckets[i].End = msTime(float64(first) + float64(i+1)*width)
	}
	for _, m := range ms {
		idx := min(int(math.Floor(float64(m-first)/width)), count-1)
		buckets[idx].Count++
	}

	return Histogram{BucketWidthMs: width, Buckets: buckets}
}

func msTime(ms float64) time.Time {
	return time.UnixMicro(int64(math.Round(ms * 1000))).UTC()
}
