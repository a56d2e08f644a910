package mocks

import (
	"github.com/mcoot/stockgame/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	// BytesResults is a queue of results to return from Bytes
	BytesResults [][]byte
	bytesIndex   int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Bytes returns the next queued result, or n zero-free filler bytes if none remaining
func (r *MockRandom) Bytes(n int) ([]byte, error) {
	if r.bytesIndex >= len(r.BytesResults) {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(i + 1)
		}
		return b, nil
	}
	result := r.BytesResults[r.bytesIndex]
	r.bytesIndex++
	return result, nil
}

// QueueBytes adds values to the Bytes result queue
func (r *MockRandom) QueueBytes(values ...[]byte) {
	r.BytesResults = append(r.BytesResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.BytesResults = nil
	r.bytesIndex = 0
}
