// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/ik5/audclass/preprocess"
)

// Classifier is a loaded model. Implementations are immutable after
// construction and safe for concurrent Predict calls.
type Classifier interface {
	Name() string
	// InputShape is the (frames, coefficients) shape Predict accepts.
	InputShape() (int, int)
	// Predict returns one probability per entry of Labels.
	Predict(x *preprocess.FeatureMatrix) ([]float64, error)
}

// Result is the arg-max of one model's distribution.
type Result struct {
	Label         string    `json:"prediction"`
	Confidence    float64   `json:"confidence"`
	Index         int       `json:"-"`
	Probabilities []float64 `json:"-"`
}

// Outcome is what one model produced: a Result or an error, never both.
type Outcome struct {
	Model   string
	Result  *Result
	Err     error
	Elapsed time.Duration
}

// Report holds one Outcome per model, in Set order.
type Report struct {
	Outcomes []Outcome
}

// Succeeded counts outcomes that carry a Result.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// sumTolerance absorbs float32 rounding in a softmax output.
const sumTolerance = 1e-3

// Evaluate validates a model's raw output and picks the most likely label.
// The output must be a distribution: values in [0, 1] summing to 1.
// Ties go to the lowest index.
func Evaluate(probs []float64) (*Result, error) {
	if len(probs) != NumClasses {
		return nil, fmt.Errorf("%w: %d values for %d labels", ErrOutputShape, len(probs), NumClasses)
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: p[%d] = %v", ErrInvalidProbability, i, p)
		}
	}
	if sum := floats.Sum(probs); math.Abs(sum-1) > sumTolerance {
		return nil, fmt.Errorf("%w: values sum to %v", ErrInvalidProbability, sum)
	}

	idx := floats.MaxIdx(probs)
	return &Result{
		Label:         labels[idx],
		Confidence:    probs[idx],
		Index:         idx,
		Probabilities: append([]float64(nil), probs...),
	}, nil
}

// Classify runs x through every model of set concurrently. A failing or
// panicking model only marks its own Outcome; the others still report.
// Models not yet started when ctx is cancelled report ctx.Err().
func Classify(ctx context.Context, x *preprocess.FeatureMatrix, set *Set) *Report {
	models := set.Models()
	report := &Report{Outcomes: make([]Outcome, len(models))}

	var wg sync.WaitGroup
	for i, m := range models {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			out := classifyOne(ctx, x, m)
			out.Elapsed = time.Since(start)
			report.Outcomes[i] = out
		}()
	}
	wg.Wait()

	return report
}

func classifyOne(ctx context.Context, x *preprocess.FeatureMatrix, m Classifier) (out Outcome) {
	out.Model = m.Name()
	fail := func(err error) Outcome {
		return Outcome{Model: out.Model, Err: &ModelInferenceError{Model: out.Model, Err: err}}
	}

	defer func() {
		if r := recover(); r != nil {
			out = fail(fmt.Errorf("%w: %v", ErrModelPanic, r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	probs, err := m.Predict(x)
	if err != nil {
		return fail(err)
	}
	res, err := Evaluate(probs)
	if err != nil {
		return fail(err)
	}

	out.Result = res
	return out
}
