package mocks

import (
	"github.com/EliasAN1/Stacktictoe/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	// IntnResults is a queue of results to return from Intn
	IntnResults []int
	intnIndex   int

	// Int63nResults is a queue of results to return from Int63n
	Int63nResults []int64
	int63nIndex   int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result, or 0 if none remaining
func (r *MockRandom) Intn(n int) int {
	if r.intnIndex >= len(r.IntnResults) {
		return 0
	}
	result := r.IntnResults[r.intnIndex]
	r.intnIndex++
	return result
}

// Int63n returns the next queued result, or 0 if none remaining
func (r *MockRandom) Int63n(n int64) int64 {
	if r.int63nIndex >= len(r.Int63nResults) {
		return 0
	}
	result := r.Int63nResults[r.int63nIndex]
	r.int63nIndex++
	return result
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.IntnResults = append(r.IntnResults, values...)
}

// QueueInt63n adds values to the Int63n result queue
func (r *MockRandom) QueueInt63n(values ...int64) {
	r.Int63nResults = append(r.Int63nResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.IntnResults = nil
	r.intnIndex = 0
	r.Int63nResults = nil
	r.int63nIndex = 0
}
