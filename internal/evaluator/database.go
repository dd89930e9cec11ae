package evaluator

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/bungogood/td-gammon/internal/probabilities"
	"github.com/bungogood/td-gammon/pkg/gammon"
)

// RecordSize is the size of one database record: five little-endian float32s.
const RecordSize = 20

// ErrDatabaseUnavailable is returned when a database cannot be loaded.
var ErrDatabaseUnavailable = errors.New("database unavailable")

// Database holds exact outcome distributions for every position of a small
// game, indexed by dbhash. It is read-only after loading and safe to share.
type Database struct {
	checkers int
	probs    []probabilities.Probabilities
}

// DatabaseSize returns the number of records expected for checkers per side.
func DatabaseSize(checkers int) int {
	n := gammon.MultisetCombinations(26, checkers)
	return n * n
}

// LoadDatabase reads records from r. The stream must contain exactly
// DatabaseSize(checkers) records.
func LoadDatabase(r io.Reader, checkers int) (*Database, error) {
	want := DatabaseSize(checkers)
	br := bufio.NewReaderSize(r, 1<<16)
	probs := make([]probabilities.Probabilities, 0, want)

	var buf [RecordSize]byte
	for {
		_, err := io.ReadFull(br, buf[:])
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated record after %d records", ErrDatabaseUnavailable, len(probs))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read record %d: %v", ErrDatabaseUnavailable, len(probs), err)
		}
		if len(probs) == want {
			return nil, fmt.Errorf("%w: more than %d records", ErrDatabaseUnavailable, want)
		}
		p, err := decodeRecord(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrDatabaseUnavailable, len(probs), err)
		}
		probs = append(probs, p)
	}

	if len(probs) != want {
		return nil, fmt.Errorf("%w: got %d records, want %d", ErrDatabaseUnavailable, len(probs), want)
	}
	return &Database{checkers: checkers, probs: probs}, nil
}

// LoadDatabaseFile opens path and loads it with LoadDatabase.
func LoadDatabaseFile(path string, checkers int) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	defer f.Close()

	db, err := LoadDatabase(f, checkers)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return db, nil
}

// decodeRecord converts the cumulative record into six separate results,
// rejecting NaN and negative outcomes.
func decodeRecord(buf [RecordSize]byte) (probabilities.Probabilities, error) {
	var c [5]float64
	for i := range c {
		c[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
	}
	p := probabilities.FromCompact(c)
	if err := p.Validate(); err != nil {
		return probabilities.Probabilities{}, err
	}
	return p, nil
}

// EncodeRecord writes p in the database record format.
func EncodeRecord(w io.Writer, p probabilities.Probabilities) error {
	var buf [RecordSize]byte
	for i, v := range p.Compact() {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	_, err := w.Write(buf[:])
	return err
}

// Checkers returns the number of checkers per side the table was built for.
func (db *Database) Checkers() int { return db.checkers }

// Len returns the number of records.
func (db *Database) Len() int { return len(db.probs) }

// Probabilities returns the record at hash.
func (db *Database) Probabilities(hash int) probabilities.Probabilities {
	return db.probs[hash]
}

// Forward returns the mover's win probability for each position, so the
// table can stand in for a learned value function.
func (db *Database) Forward(positions []gammon.Position) []float64 {
	out := make([]float64, len(positions))
	for i, p := range positions {
		out[i] = db.probs[p.DBHash(db.checkers)].WinProb()
	}
	return out
}

// DatabaseEvaluator picks the successor that leaves the opponent the lowest
// equity. Successors are seen from the opponent, so minimizing their equity
// maximizes the mover's.
type DatabaseEvaluator[S gammon.State[S]] struct {
	db *Database
}

// NewDatabaseEvaluator wraps db.
func NewDatabaseEvaluator[S gammon.State[S]](db *Database) *DatabaseEvaluator[S] {
	return &DatabaseEvaluator[S]{db: db}
}

// BestPosition returns the successor with the minimum equity.
func (e *DatabaseEvaluator[S]) BestPosition(s S, d gammon.Dice) S {
	succ := successors(s, d)
	values := make([]float64, len(succ))
	for i, n := range succ {
		values[i] = e.db.probs[n.DBHash()].Equity()
	}
	return succ[argBest(values, true)]
}
