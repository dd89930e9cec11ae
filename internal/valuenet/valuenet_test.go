package valuenet

import (
	"bytes"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/bungogood/td-gammon/pkg/gammon"
	"github.com/bungogood/td-gammon/pkg/hypergammon"
	"gonum.org/v1/gonum/mat"
)

func newTestNet(t *testing.T, seed int64, hidden ...int) *Network {
	t.Helper()
	n, err := NewNetwork(rand.New(rand.NewSource(seed)), hidden...)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	return n
}

func randomPositions(seed int64, count int) []gammon.Position {
	rng := rand.New(rand.NewSource(seed))
	dice := gammon.NewDiceSource(rng)
	var out []gammon.Position
	s := hypergammon.New()
	for len(out) < count {
		if s.GameState().Over {
			s = hypergammon.New()
		}
		out = append(out, s.Position())
		succ := s.PossiblePositions(dice.Roll())
		s = succ[rng.Intn(len(succ))]
	}
	return out
}

func TestInputsStartPosition(t *testing.T) {
	in := Inputs(hypergammon.New().Position())
	if len(in) != NumInputs {
		t.Fatalf("len = %d, want %d", len(in), NumInputs)
	}
	var sum float64
	for _, v := range in {
		sum += v
	}
	// Three single checkers per side, one unit each, nothing off.
	if sum != 6 {
		t.Errorf("sum of start inputs = %v, want 6", sum)
	}
	// Mover's 24 point sits at index 23 of its own side.
	if in[23*UnitsPerPoint] != 1 {
		t.Error("mover checker on the 24 point not encoded")
	}
	if in[SideInputs+23*UnitsPerPoint] != 1 {
		t.Error("opponent checker on its 24 point not encoded")
	}
}

func TestInputsBarAndOff(t *testing.T) {
	var p gammon.Position
	p.XBar = 2
	p.XOff = 1
	p.Board[0] = -3
	in := Inputs(p)

	bar := in[gammon.BarIndex*UnitsPerPoint : SideInputs]
	want := []float64{1, 1, 0, 0}
	for i := range want {
		if bar[i] != want[i] {
			t.Fatalf("bar units = %v, want %v", bar, want)
		}
	}
	opp := in[SideInputs+23*UnitsPerPoint : SideInputs+24*UnitsPerPoint]
	if opp[2] != 1 {
		t.Errorf("three opponent checkers on its 24 point = %v", opp)
	}
	if got := in[2*SideInputs]; math.Abs(got-1.0/3) > 1e-12 {
		t.Errorf("mover off fraction = %v, want 1/3", got)
	}
	if got := in[2*SideInputs+1]; got != 0 {
		t.Errorf("opponent off fraction = %v, want 0", got)
	}
}

func TestForwardBatchMatchesSingle(t *testing.T) {
	n := newTestNet(t, 1, 12)
	positions := randomPositions(2, 40)
	batch := n.Forward(positions)
	for i, p := range positions {
		v := n.Value(p)
		if math.Abs(v-batch[i]) > 1e-12 {
			t.Fatalf("position %d: batch %v, single %v", i, batch[i], v)
		}
		if v <= 0 || v >= 1 {
			t.Fatalf("value %v outside (0, 1)", v)
		}
	}
	if n.Forward(nil) != nil {
		t.Error("empty batch should return nil")
	}
}

func TestNewNetworkShape(t *testing.T) {
	n := newTestNet(t, 1)
	if h := n.Hidden(); len(h) != 1 || h[0] != DefaultHidden {
		t.Errorf("hidden = %v, want [%d]", h, DefaultHidden)
	}
	deep := newTestNet(t, 1, 20, 10)
	if h := deep.Hidden(); len(h) != 2 || h[0] != 20 || h[1] != 10 {
		t.Errorf("hidden = %v, want [20 10]", h)
	}
	if _, err := NewNetwork(rand.New(rand.NewSource(1)), 0); err == nil {
		t.Error("expected an error for an empty hidden layer")
	}
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	n := newTestNet(t, 3, 5, 4)
	p := randomPositions(4, 7)[6]
	v, grad := n.Gradient(p)
	if math.Abs(v-n.Value(p)) > 1e-12 {
		t.Fatalf("gradient value %v differs from forward %v", v, n.Value(p))
	}

	const eps = 1e-6
	rng := rand.New(rand.NewSource(5))
	for l := range n.Weights {
		r, c := n.Weights[l].Dims()
		for k := 0; k < 10; k++ {
			i, j := rng.Intn(r), rng.Intn(c)
			orig := n.Weights[l].At(i, j)
			n.Weights[l].Set(i, j, orig+eps)
			up := n.Value(p)
			n.Weights[l].Set(i, j, orig-eps)
			down := n.Value(p)
			n.Weights[l].Set(i, j, orig)

			numeric := (up - down) / (2 * eps)
			if got := grad.Weights[l].At(i, j); math.Abs(got-numeric) > 1e-6 {
				t.Errorf("layer %d weight (%d,%d): analytic %v, numeric %v", l, i, j, got, numeric)
			}
		}
		i := rng.Intn(r)
		orig := n.Biases[l].AtVec(i)
		n.Biases[l].SetVec(i, orig+eps)
		up := n.Value(p)
		n.Biases[l].SetVec(i, orig-eps)
		down := n.Value(p)
		n.Biases[l].SetVec(i, orig)
		if got, numeric := grad.Biases[l].AtVec(i), (up-down)/(2*eps); math.Abs(got-numeric) > 1e-6 {
			t.Errorf("layer %d bias %d: analytic %v, numeric %v", l, i, got, numeric)
		}
	}
}

func TestMomentumStep(t *testing.T) {
	n := newTestNet(t, 6, 3)
	before := n.Clone()
	grad := n.ZerosLike()
	for l := range grad.Weights {
		r, c := grad.Weights[l].Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				grad.Weights[l].Set(i, j, 1)
			}
			grad.Biases[l].SetVec(i, 1)
		}
	}

	opt := NewMomentum(n, 0.5)
	opt.Step(n, grad, 0.1)
	opt.Step(n, grad, 0.1)

	// Velocity after two steps is 1 then 1.5, so each weight moves by -0.25.
	for l := range n.Weights {
		var diff mat.Dense
		diff.Sub(before.Weights[l], n.Weights[l])
		r, c := diff.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if math.Abs(diff.At(i, j)-0.25) > 1e-12 {
					t.Fatalf("layer %d weight (%d,%d) moved by %v, want 0.25", l, i, j, diff.At(i, j))
				}
			}
		}
		if got := before.Biases[l].AtVec(0) - n.Biases[l].AtVec(0); math.Abs(got-0.25) > 1e-12 {
			t.Errorf("layer %d bias moved by %v, want 0.25", l, got)
		}
	}
}

func TestTDStepMovesTowardTarget(t *testing.T) {
	n := newTestNet(t, 7, 8)
	p := randomPositions(8, 3)[2]
	v, grad := n.Gradient(p)
	const target = 1.0
	NewMomentum(n, 0).Step(n, grad, -0.1*(target-v))
	if after := n.Value(p); after <= v {
		t.Errorf("value did not move toward target: before %v after %v", v, after)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	n := newTestNet(t, 9, 4)
	c := n.Clone()
	c.Weights[0].Set(0, 0, c.Weights[0].At(0, 0)+1)
	if n.Weights[0].At(0, 0) == c.Weights[0].At(0, 0) {
		t.Error("clone shares weight storage with the original")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	n := newTestNet(t, 10, 6, 3)
	path := filepath.Join(t.TempDir(), "nested", "model.bin")
	if err := n.SaveFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	positions := randomPositions(11, 20)
	want, got := n.Forward(positions), loaded.Forward(positions)
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("position %d: saved %v, loaded %v", i, want[i], got[i])
		}
	}
}

func TestMarshalBinary(t *testing.T) {
	n := newTestNet(t, 12, 5)
	data, err := n.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m Network
	if err := m.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p := hypergammon.New().Position()
	if n.Value(p) != m.Value(p) {
		t.Error("unmarshaled network evaluates differently")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(bytes.NewReader([]byte("not a network"))); err == nil {
		t.Error("expected an error for garbage input")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadRejectsWrongInputWidth(t *testing.T) {
	w := mat.NewDense(2, NumInputs+1, nil)
	b := mat.NewVecDense(2, nil)
	out := mat.NewDense(1, 2, nil)
	ob := mat.NewVecDense(1, nil)
	bad := &Network{Params: Params{Weights: []*mat.Dense{w, out}, Biases: []*mat.VecDense{b, ob}}}

	var buf bytes.Buffer
	if err := bad.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Load(&buf); err == nil {
		t.Error("expected a shape error")
	}
}

func TestONNXModel(t *testing.T) {
	path := os.Getenv("TD_ONNX_MODEL")
	if path == "" {
		t.Skip("TD_ONNX_MODEL not set")
	}
	m, err := LoadONNX(path)
	if err != nil {
		t.Fatalf("load onnx: %v", err)
	}
	values := m.Forward(randomPositions(13, 8))
	if len(values) != 8 {
		t.Fatalf("got %d values, want 8", len(values))
	}
	for _, v := range values {
		if v < 0 || v > 1 {
			t.Errorf("value %v outside [0, 1]", v)
		}
	}
}
