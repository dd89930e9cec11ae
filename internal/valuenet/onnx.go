package valuenet

import (
	"fmt"
	"sync"

	gonnx "github.com/advancedclimatesystems/gonnx"
	"github.com/bungogood/td-gammon/pkg/gammon"
	"github.com/rs/zerolog/log"
	"gorgonia.org/tensor"
)

// ONNX is a forward-only value function backed by an exported model taking a
// [batch, NumInputs] float32 tensor and returning one win probability per row.
type ONNX struct {
	model  *gonnx.Model
	input  string
	output string
	mu     sync.Mutex
}

// LoadONNX opens the model at path and runs one probe evaluation so a shape
// mismatch fails here rather than in the middle of a duel.
func LoadONNX(path string) (*ONNX, error) {
	model, err := gonnx.NewModelFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load onnx model %s: %w", path, err)
	}
	inputs, outputs := model.InputNames(), model.OutputNames()
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("onnx model %s: want one input and an output, got inputs %v outputs %v", path, inputs, outputs)
	}

	m := &ONNX{model: model, input: inputs[0], output: outputs[0]}
	if _, err := m.run([]gammon.Position{{}}); err != nil {
		return nil, fmt.Errorf("probe onnx model %s: %w", path, err)
	}
	log.Info().Str("path", path).Str("input", m.input).Str("output", m.output).Msg("onnx value model loaded")
	return m, nil
}

// Forward evaluates the batch. It panics if the runtime fails after the
// probe in LoadONNX succeeded.
func (m *ONNX) Forward(positions []gammon.Position) []float64 {
	if len(positions) == 0 {
		return nil
	}
	out, err := m.run(positions)
	if err != nil {
		panic(fmt.Sprintf("valuenet: onnx forward: %v", err))
	}
	return out
}

func (m *ONNX) run(positions []gammon.Position) ([]float64, error) {
	data := make([]float32, len(positions)*NumInputs)
	row := make([]float64, NumInputs)
	for i, p := range positions {
		InputsInto(p, row)
		for j, v := range row {
			data[i*NumInputs+j] = float32(v)
		}
	}

	inputs := gonnx.Tensors{
		m.input: tensor.New(
			tensor.WithShape(len(positions), NumInputs),
			tensor.Of(tensor.Float32),
			tensor.WithBacking(data),
		),
	}

	m.mu.Lock()
	outputs, err := m.model.Run(inputs)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out, ok := outputs[m.output]
	if !ok {
		return nil, fmt.Errorf("output %q not found", m.output)
	}

	var values []float64
	switch d := out.Data().(type) {
	case []float32:
		values = make([]float64, len(d))
		for i, v := range d {
			values[i] = float64(v)
		}
	case []float64:
		values = d
	case float32:
		values = []float64{float64(d)}
	case float64:
		values = []float64{d}
	default:
		return nil, fmt.Errorf("unexpected output type %T", d)
	}
	if len(values) != len(positions) {
		return nil, fmt.Errorf("got %d outputs for %d positions", len(values), len(positions))
	}
	return values, nil
}
