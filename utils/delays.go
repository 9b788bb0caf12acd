package utils

import (
	"math"
	"math/rand"
	"time"
)

// RetryDelay decides how long to sleep between retry attempts.
type RetryDelay interface {
	Wait(taskName string, attempt int)
}

// ConstantDelay sleeps a fixed number of seconds between attempts.
type ConstantDelay struct {
	Period int
}

func (d ConstantDelay) Wait(taskName string, attempt int) {
	time.Sleep(time.Duration(d.Period) * time.Second)
}

// ExponentialBackoff sleeps 2*2^attempt seconds capped at 10, plus up to
// one second of jitter.
type ExponentialBackoff struct{}

func (d ExponentialBackoff) Wait(taskName string, attempt int) {
	backoff := math.Min(2*math.Pow(2, float64(attempt)), 10)
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	time.Sleep(time.Duration(backoff*float64(time.Second)) + jitter)
}
