// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// shape describes an activation. steps == 0 means a flat vector held as a
// single row; otherwise the activation is a steps x width sequence.
type shape struct {
	steps int
	width int
}

func (s shape) String() string {
	if s.steps == 0 {
		return fmt.Sprintf("(%d)", s.width)
	}
	return fmt.Sprintf("(%d, %d)", s.steps, s.width)
}

type layer interface {
	output(in shape) (shape, error)
	forward(x *mat.Dense) *mat.Dense
}

type activation func(row []float64)

func activationByName(name string) (activation, error) {
	switch name {
	case "", "linear":
		return func([]float64) {}, nil
	case "relu":
		return func(row []float64) {
			for i, v := range row {
				row[i] = max(v, 0)
			}
		}, nil
	case "tanh":
		return func(row []float64) {
			for i, v := range row {
				row[i] = math.Tanh(v)
			}
		}, nil
	case "sigmoid":
		return func(row []float64) {
			for i, v := range row {
				row[i] = sigmoid(v)
			}
		}, nil
	case "softmax":
		return softmax, nil
	default:
		return nil, fmt.Errorf("%w: unknown activation %q", ErrInvalidModel, name)
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func softmax(row []float64) {
	m := floats.Max(row)
	var sum float64
	for i, v := range row {
		row[i] = math.Exp(v - m)
		sum += row[i]
	}
	floats.Scale(1/sum, row)
}

// dense is a fully connected layer applied to every row of its input.
type dense struct {
	kernel *mat.Dense // in x units
	bias   []float64
	act    activation
}

func (d *dense) output(in shape) (shape, error) {
	r, c := d.kernel.Dims()
	if in.width != r {
		return shape{}, fmt.Errorf("%w: dense expects width %d, got %v", ErrInvalidModel, r, in)
	}
	return shape{steps: in.steps, width: c}, nil
}

func (d *dense) forward(x *mat.Dense) *mat.Dense {
	var y mat.Dense
	y.Mul(x, d.kernel)

	rows, _ := y.Dims()
	for i := range rows {
		row := y.RawRowView(i)
		floats.Add(row, d.bias)
		d.act(row)
	}
	return &y
}

// identity covers layers that only matter during training.
type identity struct{}

func (identity) output(in shape) (shape, error)  { return in, nil }
func (identity) forward(x *mat.Dense) *mat.Dense { return x }

type flatten struct{}

func (flatten) output(in shape) (shape, error) {
	if in.steps == 0 {
		return in, nil
	}
	return shape{width: in.steps * in.width}, nil
}

func (flatten) forward(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	data := make([]float64, 0, r*c)
	for i := range r {
		data = append(data, x.RawRowView(i)...)
	}
	return mat.NewDense(1, r*c, data)
}

type globalAveragePooling struct{}

func (globalAveragePooling) output(in shape) (shape, error) {
	if in.steps == 0 {
		return shape{}, fmt.Errorf("%w: pooling needs a sequence, got %v", ErrInvalidModel, in)
	}
	return shape{width: in.width}, nil
}

func (globalAveragePooling) forward(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	out := make([]float64, c)
	for i := range r {
		floats.Add(out, x.RawRowView(i))
	}
	floats.Scale(1/float64(r), out)
	return mat.NewDense(1, c, out)
}

// lstm is a Keras-layout LSTM: gates ordered input, forget, cell, output,
// sigmoid recurrent activation and tanh cell activation.
type lstm struct {
	units     int
	kernel    *mat.Dense // in x 4u
	recurrent *mat.Dense // u x 4u
	bias      []float64  // 4u
	sequences bool
	backwards bool
}

func (l *lstm) output(in shape) (shape, error) {
	if in.steps == 0 {
		return shape{}, fmt.Errorf("%w: lstm needs a sequence, got %v", ErrInvalidModel, in)
	}
	if r, _ := l.kernel.Dims(); in.width != r {
		return shape{}, fmt.Errorf("%w: lstm expects width %d, got %v", ErrInvalidModel, r, in)
	}
	if l.sequences {
		return shape{steps: in.steps, width: l.units}, nil
	}
	return shape{width: l.units}, nil
}

// forward returns every hidden state in input time order when sequences is
// set, otherwise the final one. A backwards layer walks the input from the
// last step to the first.
func (l *lstm) forward(x *mat.Dense) *mat.Dense {
	steps, _ := x.Dims()
	u := l.units

	// Input projections for all steps in one product.
	var xw mat.Dense
	xw.Mul(x, l.kernel)

	h := mat.NewVecDense(u, nil)
	c := make([]float64, u)
	z := mat.NewVecDense(4*u, nil)

	var seq *mat.Dense
	if l.sequences {
		seq = mat.NewDense(steps, u, nil)
	}

	for n := range steps {
		t := n
		if l.backwards {
			t = steps - 1 - n
		}

		z.MulVec(l.recurrent.T(), h)
		zr := z.RawVector().Data
		floats.Add(zr, xw.RawRowView(t))
		floats.Add(zr, l.bias)

		hr := h.RawVector().Data
		for k := range u {
			i := sigmoid(zr[k])
			f := sigmoid(zr[u+k])
			g := math.Tanh(zr[2*u+k])
			o := sigmoid(zr[3*u+k])

			c[k] = f*c[k] + i*g
			hr[k] = o * math.Tanh(c[k])
		}

		if seq != nil {
			seq.SetRow(t, hr)
		}
	}

	if seq != nil {
		return seq
	}
	return mat.NewDense(1, u, append([]float64(nil), h.RawVector().Data...))
}

// bidirectional concatenates a forward and a backwards lstm feature-wise.
type bidirectional struct {
	fwd, bwd *lstm
}

func (b *bidirectional) output(in shape) (shape, error) {
	fs, err := b.fwd.output(in)
	if err != nil {
		return shape{}, err
	}
	bs, err := b.bwd.output(in)
	if err != nil {
		return shape{}, err
	}
	return shape{steps: fs.steps, width: fs.width + bs.width}, nil
}

func (b *bidirectional) forward(x *mat.Dense) *mat.Dense {
	f := b.fwd.forward(x)
	r := b.bwd.forward(x)

	rows, fc := f.Dims()
	_, rc := r.Dims()
	out := mat.NewDense(rows, fc+rc, nil)
	out.Slice(0, rows, 0, fc).(*mat.Dense).Copy(f)
	out.Slice(0, rows, fc, fc+rc).(*mat.Dense).Copy(r)
	return out
}
