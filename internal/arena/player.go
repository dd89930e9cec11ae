// Package arena builds evaluators from short textual specs and runs duels
// between them across worker goroutines.
package arena

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/bungogood/td-gammon/internal/evaluator"
	"github.com/bungogood/td-gammon/internal/perspective"
	"github.com/bungogood/td-gammon/internal/valuenet"
	"github.com/bungogood/td-gammon/pkg/hypergammon"
)

// Game is the state every arena duel is played on.
type Game = perspective.State[hypergammon.State]

// NewGame returns the standard hypergammon start wrapped for perspective tracking.
func NewGame() Game { return perspective.New(hypergammon.New()) }

// Player kinds accepted by ParseSpec.
const (
	KindRandom = "random"
	KindHyper  = "hyper"
	KindModel  = "model"
	KindONNX   = "onnx"
)

// Spec describes an evaluator, e.g. "random", "hyper:hyper.db",
// "model:model/run/games-5000.bin@2" or "onnx:net.onnx@1".
type Spec struct {
	Kind  string
	Path  string
	Plies int // 0 = kind default
}

// ParseSpec parses a player spec string.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	body := s
	var spec Spec
	if at := strings.LastIndex(body, "@"); at >= 0 {
		plies, err := strconv.Atoi(body[at+1:])
		if err != nil || plies < 1 {
			return Spec{}, fmt.Errorf("player %q: invalid plies %q", s, body[at+1:])
		}
		spec.Plies = plies
		body = body[:at]
	}
	kind, path, _ := strings.Cut(body, ":")
	spec.Kind = strings.ToLower(kind)
	spec.Path = path

	switch spec.Kind {
	case KindRandom:
		if spec.Path != "" || spec.Plies != 0 {
			return Spec{}, fmt.Errorf("player %q: random takes no arguments", s)
		}
	case KindHyper:
	case KindModel, KindONNX:
		if spec.Path == "" {
			return Spec{}, fmt.Errorf("player %q: %s needs a path", s, spec.Kind)
		}
	default:
		return Spec{}, fmt.Errorf("player %q: unknown kind %q", s, spec.Kind)
	}
	return spec, nil
}

// String renders the spec in the form ParseSpec accepts.
func (s Spec) String() string {
	out := s.Kind
	if s.Path != "" {
		out += ":" + s.Path
	}
	if s.Plies > 0 {
		out += "@" + strconv.Itoa(s.Plies)
	}
	return out
}

// Player creates evaluator instances for one side of a duel. New is called
// once per worker; instances must not be shared between goroutines unless
// the evaluator is stateless.
type Player struct {
	Name string
	New  func(rng *rand.Rand) evaluator.Evaluator[Game]
}

// RandomPlayer picks uniformly among legal moves.
func RandomPlayer() Player {
	return Player{
		Name: KindRandom,
		New: func(rng *rand.Rand) evaluator.Evaluator[Game] {
			return evaluator.NewRandom[Game](rng)
		},
	}
}

// SearchPlayer runs an n-ply search over value. value must be safe for
// concurrent Forward calls.
func SearchPlayer(name string, value evaluator.ValueFunc, plies int) (Player, error) {
	if plies == 0 {
		plies = evaluator.DefaultDepth
	}
	search, err := evaluator.NewNPly[hypergammon.State](value, plies)
	if err != nil {
		return Player{}, fmt.Errorf("player %s: %w", name, err)
	}
	return Player{
		Name: name,
		New:  func(*rand.Rand) evaluator.Evaluator[Game] { return search },
	}, nil
}

// Loader resolves specs into players, loading each file once.
type Loader struct {
	// HyperDBPath is used by "hyper" specs without a path.
	HyperDBPath string

	mu   sync.Mutex
	dbs  map[string]*evaluator.Database
	nets map[string]evaluator.ValueFunc
}

// NewLoader returns a loader with the given default database path.
func NewLoader(hyperDBPath string) *Loader {
	return &Loader{
		HyperDBPath: hyperDBPath,
		dbs:         make(map[string]*evaluator.Database),
		nets:        make(map[string]evaluator.ValueFunc),
	}
}

// Player parses s and loads whatever it refers to.
func (l *Loader) Player(s string) (Player, error) {
	spec, err := ParseSpec(s)
	if err != nil {
		return Player{}, err
	}
	return l.ForSpec(spec)
}

// ForSpec loads the evaluator described by spec.
func (l *Loader) ForSpec(spec Spec) (Player, error) {
	switch spec.Kind {
	case KindRandom:
		return RandomPlayer(), nil
	case KindHyper:
		if spec.Path == "" {
			spec.Path = l.HyperDBPath
		}
		db, err := l.Database(spec.Path)
		if err != nil {
			return Player{}, err
		}
		if spec.Plies > 0 {
			return SearchPlayer(spec.String(), db, spec.Plies)
		}
		exact := evaluator.NewDatabaseEvaluator[Game](db)
		return Player{
			Name: spec.String(),
			New:  func(*rand.Rand) evaluator.Evaluator[Game] { return exact },
		}, nil
	case KindModel:
		net, err := l.value(spec.Path, func(path string) (evaluator.ValueFunc, error) {
			return valuenet.LoadFile(path)
		})
		if err != nil {
			return Player{}, err
		}
		return SearchPlayer(spec.String(), net, spec.Plies)
	case KindONNX:
		net, err := l.value(spec.Path, func(path string) (evaluator.ValueFunc, error) {
			return valuenet.LoadONNX(path)
		})
		if err != nil {
			return Player{}, err
		}
		return SearchPlayer(spec.String(), net, spec.Plies)
	}
	return Player{}, fmt.Errorf("unknown player kind %q", spec.Kind)
}

// Database loads the standard hypergammon table at path once.
func (l *Loader) Database(path string) (*evaluator.Database, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if db, ok := l.dbs[path]; ok {
		return db, nil
	}
	db, err := evaluator.LoadDatabaseFile(path, hypergammon.NumCheckers)
	if err != nil {
		return nil, err
	}
	l.dbs[path] = db
	return db, nil
}

func (l *Loader) value(path string, load func(string) (evaluator.ValueFunc, error)) (evaluator.ValueFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.nets[path]; ok {
		return v, nil
	}
	v, err := load(path)
	if err != nil {
		return nil, err
	}
	l.nets[path] = v
	return v, nil
}
