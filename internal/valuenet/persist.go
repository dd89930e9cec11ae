package valuenet

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// snapshot is the gob payload: each matrix and vector in gonum's own binary
// format.
type snapshot struct {
	Weights [][]byte
	Biases  [][]byte
}

// Save writes the network parameters to w.
func (n *Network) Save(w io.Writer) error {
	var s snapshot
	for l := range n.Weights {
		wb, err := n.Weights[l].MarshalBinary()
		if err != nil {
			return fmt.Errorf("marshal layer %d weights: %w", l, err)
		}
		bb, err := n.Biases[l].MarshalBinary()
		if err != nil {
			return fmt.Errorf("marshal layer %d biases: %w", l, err)
		}
		s.Weights = append(s.Weights, wb)
		s.Biases = append(s.Biases, bb)
	}
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("encode network: %w", err)
	}
	return nil
}

// Load reads a network written by Save and checks that the layer shapes
// chain from NumInputs to a single output.
func Load(r io.Reader) (*Network, error) {
	var s snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode network: %w", err)
	}
	if len(s.Weights) == 0 || len(s.Weights) != len(s.Biases) {
		return nil, fmt.Errorf("decode network: %d weight and %d bias layers", len(s.Weights), len(s.Biases))
	}

	var p Params
	in := NumInputs
	for l := range s.Weights {
		w := new(mat.Dense)
		if err := w.UnmarshalBinary(s.Weights[l]); err != nil {
			return nil, fmt.Errorf("unmarshal layer %d weights: %w", l, err)
		}
		b := new(mat.VecDense)
		if err := b.UnmarshalBinary(s.Biases[l]); err != nil {
			return nil, fmt.Errorf("unmarshal layer %d biases: %w", l, err)
		}
		rows, cols := w.Dims()
		if cols != in || b.Len() != rows {
			return nil, fmt.Errorf("layer %d has shape %dx%d with %d biases, want %d inputs", l, rows, cols, b.Len(), in)
		}
		p.Weights = append(p.Weights, w)
		p.Biases = append(p.Biases, b)
		in = rows
	}
	if in != 1 {
		return nil, fmt.Errorf("network has %d outputs, want 1", in)
	}
	return &Network{Params: p}, nil
}

// SaveFile writes the network to path, creating parent directories.
func (n *Network) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := n.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a network from path.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	n, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return n, nil
}

// MarshalBinary encodes the network in the Save format.
func (n *Network) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the network with one decoded from data.
func (n *Network) UnmarshalBinary(data []byte) error {
	loaded, err := Load(bytes.NewReader(data))
	if err != nil {
		return err
	}
	n.Params = loaded.Params
	return nil
}
