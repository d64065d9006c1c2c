package core

import (
	"context"
)

// Searcher finds web sources for a query. An empty result is not an error.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Source, error)
}

// Classifier decides whether a text asserts something is true or false.
// Implementations fail closed: they never return an error, and on any
// failure report IsFactual=false with zero confidence.
type Classifier interface {
	Classify(ctx context.Context, text string) Assessment
}
