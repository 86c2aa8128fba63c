package layer

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/volnet/internal/activation"
	"github.com/born-ml/volnet/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

func randomVolume(rng *rand.Rand, s volume.Shape) *volume.Volume {
	v := volume.Zeros(s)
	for i := range v.Data() {
		v.Data()[i] = rng.Float64()*2 - 1
	}
	return v
}

// probe returns Σ grad ⊙ l.Forward(in), whose derivative with respect to any
// parameter equals what Backward accumulates for that upstream gradient.
func probe(t *testing.T, l Layer, in, grad *volume.Volume) float64 {
	t.Helper()
	out, _, err := l.Forward(in)
	require.NoError(t, err)
	return floats.Dot(out.Data(), grad.Data())
}

// agreement returns the fraction of entries where the analytic and numeric
// gradients agree within 1e-4 relative tolerance.
func agreement(analytic, numeric []float64) float64 {
	if len(analytic) == 0 {
		return 1
	}
	ok := 0
	for i, a := range analytic {
		n := numeric[i]
		diff := math.Abs(a - n)
		if diff <= 1e-4*math.Max(math.Abs(a), math.Abs(n)) || diff < 1e-7 {
			ok++
		}
	}
	return float64(ok) / float64(len(analytic))
}

var fdSettings = &fd.Settings{Formula: fd.Central, Step: 1e-6}

// checkGradients compares Backward against central finite differences for
// the weights and, when the layer returns one, the downstream gradient.
func checkGradients(t *testing.T, l Layer, rng *rand.Rand) {
	t.Helper()
	in := randomVolume(rng, l.InShape())
	grad := randomVolume(rng, l.OutShape())

	_, tr, err := l.Forward(in)
	require.NoError(t, err)
	down, err := l.Backward(tr, grad)
	require.NoError(t, err)

	if w := l.Weights(); len(w) > 0 {
		analytic := append([]float64(nil), l.Gradients()...)
		saved := append([]float64(nil), w...)
		numeric := fd.Gradient(nil, func(x []float64) float64 {
			copy(w, x)
			return probe(t, l, in, grad)
		}, saved, fdSettings)
		copy(w, saved)

		assert.GreaterOrEqual(t, agreement(analytic, numeric), 0.95, "%v weight gradient", l)
	}

	if down == nil {
		return
	}
	require.Equal(t, l.InShape(), down.Shape())
	numeric := fd.Gradient(nil, func(x []float64) float64 {
		v, err := volume.FromSlice(l.InShape(), append([]float64(nil), x...))
		require.NoError(t, err)
		return probe(t, l, v, grad)
	}, in.Data(), fdSettings)

	assert.GreaterOrEqual(t, agreement(down.Data(), numeric), 0.95, "%v downstream gradient", l)
}

func mustLayer[T Layer](t *testing.T) func(T, error) T {
	return func(l T, err error) T {
		t.Helper()
		require.NoError(t, err)
		return l
	}
}

func TestGradientCheck(t *testing.T) {
	rng := NewRand(42)
	in := volume.Shape{Planes: 2, Height: 7, Width: 7}
	flat := volume.Shape{Planes: 1, Height: 1, Width: 12}

	layers := []Layer{
		mustLayer[*Convolution](t)(NewConvolution(in, ConvConfig{Planes: 3, Size: 3, Stride: 2, Padding: 1}, rng)),
		mustLayer[*Convolution](t)(NewConvolution(in, ConvConfig{Planes: 2, Size: 4, Stride: 1}, rng)),
		mustLayer[*Convolution3x3](t)(NewConvolution3x3(in, Conv3x3Config{Planes: 3}, rng)),
		mustLayer[*MaxPooling](t)(NewMaxPooling(in, 3, 2)),
		mustLayer[*FullyConnected](t)(NewFullyConnected(in, DenseConfig{Neurons: 5}, rng)),
		mustLayer[*FullyConnected](t)(NewFullyConnected(flat, DenseConfig{Neurons: 4, Activation: activation.ReLU()}, rng)),
		mustLayer[*FullyConnected](t)(NewFullyConnected(flat, DenseConfig{Neurons: 4, Activation: activation.LeakyReLU(0.01)}, rng)),
		mustLayer[*Softmax](t)(NewSoftmax(in, SoftmaxConfig{Classes: 6}, rng)),
		mustLayer[*Activation](t)(NewActivation(in, activation.Sigmoid(2))),
		mustLayer[*Activation](t)(NewActivation(in, activation.LeakyReLU(0.01))),
	}
	for _, l := range layers {
		t.Run(l.String(), func(t *testing.T) {
			checkGradients(t, l, rng)
		})
	}
}

func TestShapeLaw(t *testing.T) {
	rng := NewRand(1)
	in := volume.Shape{Planes: 3, Height: 28, Width: 28}

	tests := []struct {
		name string
		l    Layer
		want volume.Shape
	}{
		{
			"conv floor",
			mustLayer[*Convolution](t)(NewConvolution(in, ConvConfig{Planes: 8, Size: 5, Stride: 2}, rng)),
			volume.Shape{Planes: 8, Height: 12, Width: 12},
		},
		{
			"conv padded",
			mustLayer[*Convolution](t)(NewConvolution(in, ConvConfig{Planes: 4, Size: 5, Stride: 1, Padding: 2}, rng)),
			volume.Shape{Planes: 4, Height: 28, Width: 28},
		},
		{
			"conv3x3 preserves size",
			mustLayer[*Convolution3x3](t)(NewConvolution3x3(in, Conv3x3Config{Planes: 16}, rng)),
			volume.Shape{Planes: 16, Height: 28, Width: 28},
		},
		{
			"pool ceil",
			mustLayer[*MaxPooling](t)(NewMaxPooling(in, 3, 2)),
			volume.Shape{Planes: 3, Height: 14, Width: 14},
		},
		{
			"pool non overlapping",
			mustLayer[*MaxPooling](t)(NewMaxPooling(in, 2, 0)),
			volume.Shape{Planes: 3, Height: 14, Width: 14},
		},
		{
			"dense",
			mustLayer[*FullyConnected](t)(NewFullyConnected(in, DenseConfig{Neurons: 10}, rng)),
			volume.Shape{Planes: 1, Height: 1, Width: 10},
		},
		{
			"softmax",
			mustLayer[*Softmax](t)(NewSoftmax(in, SoftmaxConfig{Classes: 10}, rng)),
			volume.Shape{Planes: 1, Height: 1, Width: 10},
		},
		{
			"activation",
			mustLayer[*Activation](t)(NewActivation(in, activation.ReLU())),
			in,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, in, tt.l.InShape())
			assert.Equal(t, tt.want, tt.l.OutShape())

			out, tr, err := tt.l.Forward(randomVolume(rng, in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Shape())
			assert.Same(t, out, tr.Output)

			down, err := tt.l.Backward(tr, randomVolume(rng, tt.want))
			require.NoError(t, err)
			assert.Equal(t, in, down.Shape())
		})
	}
}

func TestForward_ShapeMismatch(t *testing.T) {
	rng := NewRand(2)
	in := volume.Shape{Planes: 1, Height: 6, Width: 6}
	wrong := volume.New(1, 5, 6)

	layers := []Layer{
		mustLayer[*Convolution](t)(NewConvolution(in, ConvConfig{Planes: 2, Size: 3}, rng)),
		mustLayer[*Convolution3x3](t)(NewConvolution3x3(in, Conv3x3Config{Planes: 2}, rng)),
		mustLayer[*MaxPooling](t)(NewMaxPooling(in, 2, 2)),
		mustLayer[*FullyConnected](t)(NewFullyConnected(in, DenseConfig{Neurons: 3}, rng)),
		mustLayer[*Softmax](t)(NewSoftmax(in, SoftmaxConfig{Classes: 3}, rng)),
		mustLayer[*Activation](t)(NewActivation(in, activation.Sigmoid(2))),
	}
	for _, l := range layers {
		_, _, err := l.Forward(wrong)
		assert.ErrorIs(t, err, volume.ErrShapeMismatch, l.String())

		var se *volume.ShapeError
		require.True(t, errors.As(err, &se), l.String())
		assert.Equal(t, in, se.Want)
		assert.Equal(t, wrong.Shape(), se.Got)

		_, tr, err := l.Forward(volume.Zeros(in))
		require.NoError(t, err)
		_, err = l.Backward(tr, volume.New(2, 1, 1))
		assert.ErrorIs(t, err, volume.ErrShapeMismatch, l.String())
	}
}

func TestConstructors_InvalidGeometry(t *testing.T) {
	in := volume.Shape{Planes: 1, Height: 4, Width: 4}

	_, err := NewConvolution(in, ConvConfig{Planes: 1, Size: 5}, nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry, "kernel larger than input")

	_, err = NewConvolution(in, ConvConfig{Planes: 0, Size: 3}, nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = NewConvolution(in, ConvConfig{Planes: 1, Size: 3, Padding: -1}, nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = NewConvolution3x3(volume.Shape{}, Conv3x3Config{Planes: 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = NewMaxPooling(in, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = NewFullyConnected(in, DenseConfig{Neurons: 0}, nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = NewSoftmax(in, SoftmaxConfig{Classes: -1}, nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = NewActivation(volume.Shape{Planes: 1}, activation.ReLU())
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestClone_Independent(t *testing.T) {
	rng := NewRand(3)
	in := volume.Shape{Planes: 1, Height: 5, Width: 5}
	l := mustLayer[*FullyConnected](t)(NewFullyConnected(in, DenseConfig{Neurons: 3, LR: 0.5}, rng))

	x := randomVolume(rng, in)
	_, tr, err := l.Forward(x)
	require.NoError(t, err)
	_, err = l.Backward(tr, volume.Vector(1, -1, 0.5))
	require.NoError(t, err)

	c := l.Clone()
	assert.Equal(t, l.Weights(), c.Weights())
	assert.Equal(t, make([]float64, len(l.Weights())), c.Gradients(), "clone gradient starts at zero")

	c.Weights()[0] += 1
	assert.NotEqual(t, l.Weights()[0], c.Weights()[0])

	before := append([]float64(nil), c.Weights()...)
	l.Update()
	assert.Equal(t, before, c.Weights(), "updating the source must not touch the clone")
}

func TestMergeGradients(t *testing.T) {
	rng := NewRand(4)
	in := volume.Shape{Planes: 2, Height: 5, Width: 5}
	conv := mustLayer[*Convolution](t)(NewConvolution(in, ConvConfig{Planes: 2, Size: 3}, rng))

	a, b := conv.Clone(), conv.Clone()
	for i := range a.Gradients() {
		a.Gradients()[i] = 1
		b.Gradients()[i] = float64(i)
	}

	require.NoError(t, conv.MergeGradients([]Layer{a, b}))
	for i, g := range conv.Gradients() {
		assert.Equal(t, 1+float64(i), g)
	}

	pool := mustLayer[*MaxPooling](t)(NewMaxPooling(in, 2, 2))
	err := conv.MergeGradients([]Layer{pool})
	assert.ErrorIs(t, err, ErrIncompatibleLayer)

	other := mustLayer[*Convolution](t)(NewConvolution(in, ConvConfig{Planes: 3, Size: 3}, rng))
	err = conv.MergeGradients([]Layer{other})
	assert.ErrorIs(t, err, ErrIncompatibleLayer)

	assert.NoError(t, pool.MergeGradients([]Layer{pool.Clone()}))
}

func TestUpdate_ZeroesGradient(t *testing.T) {
	rng := NewRand(5)
	in := volume.Shape{Planes: 1, Height: 4, Width: 4}
	conv := mustLayer[*Convolution](t)(NewConvolution(in, ConvConfig{Planes: 1, Size: 2, LR: 0.1}, rng))

	w := append([]float64(nil), conv.Weights()...)
	for i := range conv.Gradients() {
		conv.Gradients()[i] = 1
	}
	conv.Update()

	for i := range w {
		assert.InDelta(t, w[i]-0.1, conv.Weights()[i], 1e-15, "convolution uses plain SGD")
		assert.Zero(t, conv.Gradients()[i])
	}
}

func TestFirstLayer_NoDownstream(t *testing.T) {
	rng := NewRand(6)
	in := volume.Shape{Planes: 1, Height: 6, Width: 6}

	conv := mustLayer[*Convolution](t)(NewConvolution(in, ConvConfig{Planes: 2, Size: 3, FirstLayer: true}, rng))
	fast := mustLayer[*Convolution3x3](t)(NewConvolution3x3(in, Conv3x3Config{Planes: 2, FirstLayer: true}, rng))

	for _, l := range []Layer{conv, fast} {
		_, tr, err := l.Forward(randomVolume(rng, in))
		require.NoError(t, err)
		down, err := l.Backward(tr, randomVolume(rng, l.OutShape()))
		require.NoError(t, err)
		assert.Nil(t, down)
		assert.NotZero(t, floats.Norm(l.Gradients(), 1), "weight gradient is still accumulated")
	}
}

func TestNewRand_Deterministic(t *testing.T) {
	in := volume.Shape{Planes: 1, Height: 3, Width: 3}
	a := mustLayer[*FullyConnected](t)(NewFullyConnected(in, DenseConfig{Neurons: 4}, NewRand(9)))
	b := mustLayer[*FullyConnected](t)(NewFullyConnected(in, DenseConfig{Neurons: 4}, NewRand(9)))
	assert.Equal(t, a.Weights(), b.Weights())
}
