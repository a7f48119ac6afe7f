/*
 * engine.go, part of gocage.
 *
 * Copyright 2024 The gocage authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package mutation implements the mutation step of the genetic
// algorithm: parents from a population are turned into new cages by
// operators picked at random.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/gocage/gocage/cage"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// NameTemplate is the name of the file of the nth mutant.
const NameTemplate = "mutation_%d.mol"

// ErrMutationAttempt is wrapped by the errors of failed attempts.
var ErrMutationAttempt = errors.New("mutation attempt failed")

// AttemptError is the reason an attempt failed.
type AttemptError struct {
	Operator string
	Parent   string
	Err      error
}

func (E *AttemptError) Error() string {
	return fmt.Sprintf("mutation with %s of %s: %v", E.Operator, E.Parent, E.Err)
}

func (E *AttemptError) Unwrap() []error {
	return []error{ErrMutationAttempt, E.Err}
}

// Attempt is the result of applying one operator to one parent. Exactly
// one of Mutant and Err is nil.
type Attempt struct {
	N        int64 //the engine's call number
	Parent   *cage.Cage
	Operator string
	Out      string
	Mutant   *cage.Cage
	Err      error
}

// Round is the result of a call to Engine.Run.
type Round struct {
	ID        uuid.UUID
	Attempts  []Attempt
	Mutants   []*cage.Cage //after dropping those already in the population
	Discarded int
	Counter   map[*cage.Cage]int //times each member was used as a parent
}

// Successes returns the attempts that produced a mutant.
func (R *Round) Successes() []Attempt {
	var ret []Attempt
	for _, a := range R.Attempts {
		if a.Err == nil {
			ret = append(ret, a)
		}
	}
	return ret
}

// Failures returns the attempts that failed.
func (R *Round) Failures() []Attempt {
	var ret []Attempt
	for _, a := range R.Attempts {
		if a.Err != nil {
			ret = append(ret, a)
		}
	}
	return ret
}

// Selector picks the parents of a round, in order. The same member may
// be picked more than once.
type Selector interface {
	Select(population []*cage.Cage) []*cage.Cage
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func([]*cage.Cage) []*cage.Cage

func (S SelectorFunc) Select(p []*cage.Cage) []*cage.Cage { return S(p) }

// All selects the whole population once, in order.
var All = SelectorFunc(func(p []*cage.Cage) []*cage.Cage { return p })

// Engine runs mutation rounds. A round is processed sequentially.
type Engine struct {
	cfg     Config
	ops     []Operator
	cum     []float64
	env     Env
	log     *zap.Logger
	metrics *Metrics
	rng     *rand.Rand
	sel     Selector
	calls   atomic.Int64
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(E *Engine) { E.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(E *Engine) { E.metrics = m }
}

func WithRand(r *rand.Rand) Option {
	return func(E *Engine) { E.rng = r }
}

func WithSelector(s Selector) Option {
	return func(E *Engine) { E.sel = s }
}

// NewEngine validates cfg, creates its output directory and builds its
// operators.
func NewEngine(cfg *Config, env Env, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil configuration", ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
			return nil, err
		}
	}
	E := &Engine{cfg: *cfg, env: env, log: zap.NewNop(), sel: All}
	for _, o := range opts {
		o(E)
	}
	if E.log == nil {
		E.log = zap.NewNop()
	}
	if E.rng == nil {
		var seed uint64
		if cfg.Seed != nil {
			seed = *cfg.Seed
		} else {
			seed = rand.Uint64()
		}
		E.rng = rand.New(rand.NewPCG(seed, seed))
	}
	if E.env.Rand == nil {
		E.env.Rand = E.rng
	}
	for _, oc := range cfg.Operators {
		op, err := New(oc.Name, oc.Params, &E.env)
		if err != nil {
			return nil, multierr.Append(err, E.Close())
		}
		E.ops = append(E.ops, op)
	}
	E.cum = cfg.Probabilities()
	floats.CumSum(E.cum, E.cum)
	return E, nil
}

// Operators returns the names of the engine's operators.
func (E *Engine) Operators() []string {
	ret := make([]string, len(E.ops))
	for i, o := range E.ops {
		ret[i] = o.Name()
	}
	return ret
}

// Calls returns the number of attempts made by the engine so far.
func (E *Engine) Calls() int64 { return E.calls.Load() }

// Close releases the databases held by the operators.
func (E *Engine) Close() error {
	var err error
	for _, o := range E.ops {
		if c, ok := o.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

// choose draws an operator with the configured probabilities. Operators
// with zero weight have a zero width interval in cum and are never hit.
func (E *Engine) choose() Operator {
	x := E.rng.Float64() * E.cum[len(E.cum)-1]
	i := sort.Search(len(E.cum), func(i int) bool { return E.cum[i] > x })
	if i == len(E.cum) {
		i--
		for i > 0 && E.cum[i] == E.cum[i-1] {
			i--
		}
	}
	return E.ops[i]
}

// Run mutates the parents selected from population, until the
// configured number of mutants is made or the parents run out. Failed
// attempts are recorded in the round. Mutants equivalent to a member of
// population are discarded. The only errors returned are for an engine
// with no operators and a cancelled ctx, in which case the round so far
// is also returned.
func (E *Engine) Run(ctx context.Context, population []*cage.Cage) (*Round, error) {
	if len(E.ops) == 0 {
		return nil, fmt.Errorf("%w: no operators", ErrConfig)
	}
	R := &Round{ID: uuid.New(), Counter: make(map[*cage.Cage]int, len(population))}
	log := E.log.With(zap.String("round", R.ID.String()))
	var mutants []*cage.Cage
	var ctxErr error
	for _, parent := range E.sel.Select(population) {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		R.Counter[parent]++
		op := E.choose()
		n := E.calls.Add(1)
		out := filepath.Join(E.cfg.OutDir, fmt.Sprintf(NameTemplate, n))
		a := E.attempt(ctx, op, parent, out)
		a.N = n
		R.Attempts = append(R.Attempts, a)
		if a.Err != nil {
			log.Warn("mutation failed", zap.Int64("attempt", n), zap.Error(a.Err))
			continue
		}
		mutants = append(mutants, a.Mutant)
		log.Info("mutation done", zap.Int64("attempt", n), zap.String("operator", a.Operator),
			zap.Int("mutations", len(mutants)), zap.Int("quota", E.cfg.NumMutations))
		if len(mutants) == E.cfg.NumMutations {
			break
		}
	}
	for _, m := range mutants {
		if inPopulation(m, population) {
			R.Discarded++
			continue
		}
		R.Mutants = append(R.Mutants, m)
	}
	for _, p := range population {
		if _, ok := R.Counter[p]; !ok {
			R.Counter[p] = 0
		}
	}
	E.metrics.round(R.Discarded)
	log.Debug("round finished", zap.Int("attempts", len(R.Attempts)),
		zap.Int("mutants", len(R.Mutants)), zap.Int("discarded", R.Discarded))
	return R, ctxErr
}

// attempt runs op, turning panics and nil mutants into failures.
func (E *Engine) attempt(ctx context.Context, op Operator, parent *cage.Cage, out string) (a Attempt) {
	a = Attempt{Parent: parent, Operator: op.Name(), Out: out}
	defer func() {
		if r := recover(); r != nil {
			a.Mutant = nil
			a.Err = &AttemptError{Operator: a.Operator, Parent: parent.Key(), Err: fmt.Errorf("panic: %v", r)}
		}
		E.metrics.attempt(a.Operator, a.Err == nil)
	}()
	m, err := op.Mutate(ctx, parent, out)
	if err == nil && m == nil {
		err = errors.New("operator returned no cage")
	}
	if err != nil {
		a.Err = &AttemptError{Operator: a.Operator, Parent: parent.Key(), Err: err}
		return a
	}
	a.Mutant = m
	return a
}

func inPopulation(m *cage.Cage, population []*cage.Cage) bool {
	for _, p := range population {
		if cage.Same(m, p) {
			return true
		}
	}
	return false
}
