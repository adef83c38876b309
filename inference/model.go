// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"github.com/ik5/audclass/preprocess"
)

// Layer type names accepted in model files. They follow the Keras class
// names of the layers they were exported from.
const (
	LayerLSTM                   = "lstm"
	LayerBidirectional          = "bidirectional"
	LayerDense                  = "dense"
	LayerDropout                = "dropout"
	LayerFlatten                = "flatten"
	LayerGlobalAveragePooling1D = "global_average_pooling1d"
)

// ModelFile is the on-disk form of a trained network. Weight matrices are
// stored row major in Keras layout.
type ModelFile struct {
	Name       string      `msgpack:"name"`
	InputShape []int       `msgpack:"input_shape"`
	Labels     []string    `msgpack:"labels,omitempty"`
	Layers     []LayerFile `msgpack:"layers"`
}

type LayerFile struct {
	Type            string    `msgpack:"type"`
	Units           int       `msgpack:"units,omitempty"`
	Activation      string    `msgpack:"activation,omitempty"`
	ReturnSequences bool      `msgpack:"return_sequences,omitempty"`
	Kernel          []float32 `msgpack:"kernel,omitempty"`
	RecurrentKernel []float32 `msgpack:"recurrent_kernel,omitempty"`
	Bias            []float32 `msgpack:"bias,omitempty"`

	// Backward holds the reverse-direction weights of a bidirectional
	// layer; the forward weights live in the fields above.
	Backward *LayerFile `msgpack:"backward,omitempty"`
}

// Network is a feed-forward stack of layers loaded from a ModelFile.
type Network struct {
	name   string
	input  shape
	layers []layer
}

var _ Classifier = (*Network)(nil)

func (n *Network) Name() string { return n.name }

func (n *Network) InputShape() (int, int) { return n.input.steps, n.input.width }

// Predict runs x through every layer. x must match InputShape.
func (n *Network) Predict(x *preprocess.FeatureMatrix) ([]float64, error) {
	if x == nil {
		return nil, ErrInputShape
	}
	if r, c := x.Dims(); r != n.input.steps || c != n.input.width {
		return nil, fmt.Errorf("%w: got (%d, %d), want %v", ErrInputShape, r, c, n.input)
	}

	a := mat.DenseCopyOf(x.Matrix())
	for _, l := range n.layers {
		a = l.forward(a)
	}

	return append([]float64(nil), a.RawRowView(0)...), nil
}

// Build turns a decoded model file into a runnable Network. Every layer is
// shape checked so a bad file fails here instead of at request time.
func Build(mf *ModelFile) (*Network, error) {
	if mf.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidModel)
	}
	if len(mf.InputShape) != 2 || mf.InputShape[0] <= 0 || mf.InputShape[1] <= 0 {
		return nil, fmt.Errorf("%w: %s: input shape %v", ErrInvalidModel, mf.Name, mf.InputShape)
	}
	if len(mf.Labels) > 0 && !slices.Equal(mf.Labels, labels[:]) {
		return nil, fmt.Errorf("%w: %s: label vocabulary differs", ErrInvalidModel, mf.Name)
	}
	if len(mf.Layers) == 0 {
		return nil, fmt.Errorf("%w: %s: no layers", ErrInvalidModel, mf.Name)
	}

	n := &Network{
		name:  mf.Name,
		input: shape{steps: mf.InputShape[0], width: mf.InputShape[1]},
	}

	cur := n.input
	for i := range mf.Layers {
		lf := &mf.Layers[i]
		l, err := buildLayer(lf, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: layer %d (%s): %w", mf.Name, i, lf.Type, err)
		}
		if cur, err = l.output(cur); err != nil {
			return nil, fmt.Errorf("%s: layer %d (%s): %w", mf.Name, i, lf.Type, err)
		}
		n.layers = append(n.layers, l)
	}

	if cur.steps != 0 || cur.width != NumClasses {
		return nil, fmt.Errorf("%w: %s: output %v, want (%d)", ErrInvalidModel, mf.Name, cur, NumClasses)
	}

	return n, nil
}

func buildLayer(lf *LayerFile, in shape) (layer, error) {
	switch lf.Type {
	case LayerDense:
		act, err := activationByName(lf.Activation)
		if err != nil {
			return nil, err
		}
		kernel, err := weights(lf.Kernel, in.width, lf.Units, "kernel")
		if err != nil {
			return nil, err
		}
		bias, err := vector(lf.Bias, lf.Units)
		if err != nil {
			return nil, err
		}
		return &dense{kernel: kernel, bias: bias, act: act}, nil

	case LayerLSTM:
		return buildLSTM(lf, in.width, lf.ReturnSequences, false)

	case LayerBidirectional:
		if lf.Backward == nil {
			return nil, fmt.Errorf("%w: missing backward weights", ErrInvalidModel)
		}
		fwd, err := buildLSTM(lf, in.width, lf.ReturnSequences, false)
		if err != nil {
			return nil, err
		}
		bu := lf.Backward.Units
		if bu == 0 {
			bu = lf.Units
		}
		back := *lf.Backward
		back.Units = bu
		bwd, err := buildLSTM(&back, in.width, lf.ReturnSequences, true)
		if err != nil {
			return nil, fmt.Errorf("backward: %w", err)
		}
		return &bidirectional{fwd: fwd, bwd: bwd}, nil

	case LayerDropout:
		return identity{}, nil
	case LayerFlatten:
		return flatten{}, nil
	case LayerGlobalAveragePooling1D:
		return globalAveragePooling{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown layer type %q", ErrInvalidModel, lf.Type)
	}
}

func buildLSTM(lf *LayerFile, in int, sequences, backwards bool) (*lstm, error) {
	u := lf.Units
	kernel, err := weights(lf.Kernel, in, 4*u, "kernel")
	if err != nil {
		return nil, err
	}
	recurrent, err := weights(lf.RecurrentKernel, u, 4*u, "recurrent kernel")
	if err != nil {
		return nil, err
	}
	bias, err := vector(lf.Bias, 4*u)
	if err != nil {
		return nil, err
	}

	return &lstm{
		units:     u,
		kernel:    kernel,
		recurrent: recurrent,
		bias:      bias,
		sequences: sequences,
		backwards: backwards,
	}, nil
}

func weights(w []float32, rows, cols int, what string) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %s shape %dx%d", ErrInvalidModel, what, rows, cols)
	}
	if len(w) != rows*cols {
		return nil, fmt.Errorf("%w: %s has %d values, want %dx%d", ErrInvalidModel, what, len(w), rows, cols)
	}
	return mat.NewDense(rows, cols, toFloat64(w)), nil
}

// vector converts a bias; an absent bias means zeros.
func vector(b []float32, n int) ([]float64, error) {
	if len(b) == 0 {
		return make([]float64, n), nil
	}
	if len(b) != n {
		return nil, fmt.Errorf("%w: bias has %d values, want %d", ErrInvalidModel, len(b), n)
	}
	return toFloat64(b), nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Decode reads a msgpack model file and builds it.
func Decode(r io.Reader) (*Network, error) {
	var mf ModelFile
	if err := msgpack.NewDecoder(r).Decode(&mf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	return Build(&mf)
}

// Encode writes mf in the format Decode reads.
func Encode(w io.Writer, mf *ModelFile) error {
	if err := msgpack.NewEncoder(w).Encode(mf); err != nil {
		return fmt.Errorf("encode model %s: %w", mf.Name, err)
	}
	return nil
}

// LoadFile loads a model from disk.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	n, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// ModelSpec names a model file to load.
type ModelSpec struct {
	Name string
	Path string
}

// LoadAll loads every spec in order and checks each model accepts a
// frames x coeffs feature matrix. A non-empty spec name overrides the name
// stored in the file.
func LoadAll(specs []ModelSpec, frames, coeffs int) (*Set, error) {
	if len(specs) == 0 {
		return nil, ErrNoModels
	}

	models := make([]Classifier, 0, len(specs))
	for _, spec := range specs {
		n, err := LoadFile(spec.Path)
		if err != nil {
			return nil, err
		}
		if spec.Name != "" {
			n.name = spec.Name
		}
		if f, c := n.InputShape(); f != frames || c != coeffs {
			return nil, fmt.Errorf("%w: %s takes (%d, %d), features are (%d, %d)",
				ErrShapeMismatch, n.Name(), f, c, frames, coeffs)
		}
		models = append(models, n)
	}

	return NewSet(models...)
}
