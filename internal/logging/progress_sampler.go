package logging

// ProgressSampler suppresses repetitive progress logs for long frame ranges,
// emitting only when completion crosses a percentage bucket.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler returns a sampler with the given bucket size in
// percent. Non-positive sizes default to 10.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether done out of total crosses into a new bucket.
// The final item always logs. A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(done, total int64) bool {
	if s == nil || total <= 0 {
		return true
	}
	if done >= total {
		if s.lastBucket == int(100/s.bucketSize) {
			return false
		}
		s.lastBucket = int(100 / s.bucketSize)
		return true
	}
	bucket := int(float64(done) * 100 / float64(total) / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state for a new range.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.lastBucket = -1
	}
}
