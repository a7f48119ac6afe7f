/*
 * engine_test.go, part of gocage.
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

package mutation_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocage/gocage/cage"
	"github.com/gocage/gocage/internal/chemtest"
	"github.com/gocage/gocage/mutation"
	"github.com/gocage/gocage/similarity"
	"github.com/gocage/gocage/units"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	dir string
	A   *chemtest.Assembler
	env mutation.Env
	lk  *units.Linker
}

func newFixture(Te *testing.T) *fixture {
	f := &fixture{dir: Te.TempDir(), A: &chemtest.Assembler{}}
	f.env = mutation.Env{
		Units: units.NewFactory(&chemtest.Oracle{}, nil, zaptest.NewLogger(Te)),
		Cages: cage.NewBuilder(f.A, nil, zaptest.NewLogger(Te)),
	}
	var err error
	f.lk, err = f.env.Units.Linker(chemtest.WriteChain(Te, f.dir, "aldehyde/dial.mol", 6, 8, 6), true)
	require.NoError(Te, err)
	return f
}

// cage builds the cage with the building block made of zs, written to
// amine/name.mol.
func (f *fixture) cage(Te *testing.T, name, topology string, zs ...int) *cage.Cage {
	bb, err := f.env.Units.BuildingBlock(chemtest.WriteChain(Te, f.dir, filepath.Join("amine", name+".mol"), zs...), true)
	require.NoError(Te, err)
	c, err := f.env.Cages.Cage(context.Background(), bb, f.lk, topology, filepath.Join(f.dir, name+"_"+topology+".mol"), true)
	require.NoError(Te, err)
	return c
}

func (f *fixture) population(Te *testing.T) []*cage.Cage {
	return []*cage.Cage{
		f.cage(Te, "a", "FourPlusSix", 7, 6, 7),
		f.cage(Te, "b", "FourPlusSix", 7, 6, 6, 7),
		f.cage(Te, "c", "FourPlusSix", 7, 6, 6, 6, 7),
	}
}

func topologySwap(tops ...any) mutation.OperatorConfig {
	return mutation.OperatorConfig{Name: "random_cage_topology", Params: map[string]any{"topologies": tops}}
}

func seeded() mutation.Option {
	return mutation.WithRand(rand.New(rand.NewPCG(1, 2)))
}

func TestRunQuota(Te *testing.T) {
	f := newFixture(Te)
	pop := f.population(Te)
	out := filepath.Join(f.dir, "out")
	cfg := &mutation.Config{
		NumMutations: 2,
		Operators:    []mutation.OperatorConfig{topologySwap("FourPlusSix", "EightPlusTwelve", "SixPlusNine")},
		OutDir:       out,
	}
	E, err := mutation.NewEngine(cfg, f.env, mutation.WithLogger(zaptest.NewLogger(Te)), seeded())
	require.NoError(Te, err)
	defer E.Close()
	R, err := E.Run(context.Background(), pop)
	require.NoError(Te, err)
	require.Len(Te, R.Mutants, 2)
	assert.Len(Te, R.Attempts, 2)
	assert.Len(Te, R.Successes(), 2)
	assert.Empty(Te, R.Failures())
	assert.Zero(Te, R.Discarded)
	for i, m := range R.Mutants {
		assert.False(Te, cage.Same(m, pop[i]))
		assert.Same(Te, pop[i].BB, m.BB)
		assert.NotEqual(Te, "FourPlusSix", m.Topology)
		assert.Equal(Te, filepath.Join(out, []string{"mutation_1.mol", "mutation_2.mol"}[i]), m.File)
		_, err := os.Stat(m.File)
		assert.NoError(Te, err)
	}
	assert.Equal(Te, map[*cage.Cage]int{pop[0]: 1, pop[1]: 1, pop[2]: 0}, R.Counter)
	//fewer parents than the quota
	cfg.NumMutations = 5
	E2, err := mutation.NewEngine(cfg, f.env, seeded())
	require.NoError(Te, err)
	R, err = E2.Run(context.Background(), pop)
	require.NoError(Te, err)
	assert.Len(Te, R.Mutants, 3)
	assert.Equal(Te, int64(3), E2.Calls())
	assert.NotEqual(Te, uuid.Nil, R.ID)
}

func TestRunAllFail(Te *testing.T) {
	f := newFixture(Te)
	pop := f.population(Te)
	M, err := mutation.NewMetrics(prometheus.NewRegistry())
	require.NoError(Te, err)
	cfg := &mutation.Config{
		NumMutations: 2,
		Operators: []mutation.OperatorConfig{
			topologySwap("FourPlusSix"),
			topologySwap("FourPlusSix", "bad_topology"),
		},
		OutDir: filepath.Join(f.dir, "out"),
	}
	E, err := mutation.NewEngine(cfg, f.env, mutation.WithMetrics(M), seeded())
	require.NoError(Te, err)
	R, err := E.Run(context.Background(), pop)
	require.NoError(Te, err)
	assert.Empty(Te, R.Mutants)
	require.Len(Te, R.Failures(), 3)
	for i, a := range R.Attempts {
		assert.Nil(Te, a.Mutant)
		assert.Same(Te, pop[i], a.Parent)
		assert.Equal(Te, int64(i+1), a.N)
		assert.True(Te, errors.Is(a.Err, mutation.ErrMutationAttempt))
		var ae *mutation.AttemptError
		require.True(Te, errors.As(a.Err, &ae))
		assert.Equal(Te, "random_cage_topology", ae.Operator)
		assert.Equal(Te, pop[i].Key(), ae.Parent)
	}
	assert.Equal(Te, map[*cage.Cage]int{pop[0]: 1, pop[1]: 1, pop[2]: 1}, R.Counter)
	assert.Equal(Te, 3.0, testutil.ToFloat64(M.Attempts.WithLabelValues("random_cage_topology", "failure")))
	assert.Equal(Te, 0.0, testutil.ToFloat64(M.Attempts.WithLabelValues("random_cage_topology", "success")))
	assert.Equal(Te, 1.0, testutil.ToFloat64(M.Rounds))
}

func TestRunDiscard(Te *testing.T) {
	f := newFixture(Te)
	x := f.cage(Te, "x", "FourPlusSix", 7, 6, 7)
	y := f.cage(Te, "x", "EightPlusTwelve", 7, 6, 7)
	M, err := mutation.NewMetrics(nil)
	require.NoError(Te, err)
	cfg := &mutation.Config{
		NumMutations: 1,
		Operators:    []mutation.OperatorConfig{topologySwap("FourPlusSix", "EightPlusTwelve")},
	}
	only := mutation.SelectorFunc(func(p []*cage.Cage) []*cage.Cage { return p[:1] })
	E, err := mutation.NewEngine(cfg, f.env, mutation.WithSelector(only), mutation.WithMetrics(M))
	require.NoError(Te, err)
	R, err := E.Run(context.Background(), []*cage.Cage{x, y})
	require.NoError(Te, err)
	require.Len(Te, R.Successes(), 1)
	assert.Same(Te, y, R.Successes()[0].Mutant)
	assert.Empty(Te, R.Mutants)
	assert.Equal(Te, 1, R.Discarded)
	assert.Equal(Te, map[*cage.Cage]int{x: 1, y: 0}, R.Counter)
	assert.Equal(Te, 1.0, testutil.ToFloat64(M.Discarded))
}

func TestRunSimilar(Te *testing.T) {
	f := newFixture(Te)
	parent := f.cage(Te, "tren", "FourPlusSix", 7, 6, 6, 7)
	near := chemtest.WriteChain(Te, f.dir, "amine/near.mol", 7, 6, 6, 6, 7)
	far := chemtest.WriteChain(Te, f.dir, "amine/far.mol", 7, 16, 7)
	cfg := &mutation.Config{
		NumMutations: 5,
		Operators: []mutation.OperatorConfig{{
			Name:   "similar_bb",
			Params: map[string]any{"database": filepath.Join(f.dir, "amine")},
		}},
		OutDir: filepath.Join(f.dir, "out"),
	}
	thrice := mutation.SelectorFunc(func(p []*cage.Cage) []*cage.Cage { return []*cage.Cage{p[0], p[0], p[0]} })
	E, err := mutation.NewEngine(cfg, f.env, mutation.WithSelector(thrice))
	require.NoError(Te, err)
	R, err := E.Run(context.Background(), []*cage.Cage{parent})
	require.NoError(Te, err)
	require.Len(Te, R.Attempts, 3)
	require.Len(Te, R.Mutants, 2)
	assert.Equal(Te, near, R.Mutants[0].BB.PristFile())
	assert.Equal(Te, far, R.Mutants[1].BB.PristFile())
	assert.Same(Te, parent.LK, R.Mutants[0].LK)
	assert.True(Te, errors.Is(R.Attempts[2].Err, similarity.ErrExhausted))
	assert.Equal(Te, map[*cage.Cage]int{parent: 3}, R.Counter)
	//the parent keeps its place in the sequence
	require.NotNil(Te, parent.SimilarBB())
	assert.Zero(Te, parent.SimilarBB().Remaining())
	assert.Nil(Te, parent.SimilarLK())
}

func TestRunCancelled(Te *testing.T) {
	f := newFixture(Te)
	pop := f.population(Te)
	cfg := &mutation.Config{NumMutations: 3, Operators: []mutation.OperatorConfig{topologySwap("FourPlusSix", "SixPlusNine")}}
	E, err := mutation.NewEngine(cfg, f.env)
	require.NoError(Te, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	R, err := E.Run(ctx, pop)
	assert.True(Te, errors.Is(err, context.Canceled))
	require.NotNil(Te, R)
	assert.Empty(Te, R.Attempts)
	assert.Equal(Te, 0, R.Counter[pop[0]])
	assert.Len(Te, R.Counter, 3)
}

func TestNewEngineErrors(Te *testing.T) {
	f := newFixture(Te)
	for name, ops := range map[string][]mutation.OperatorConfig{
		"unknown":          {{Name: "crossover"}},
		"no database":      {{Name: "random_bb"}},
		"missing database": {{Name: "similar_lk", Params: map[string]any{"database": filepath.Join(f.dir, "nope")}}},
		"no topologies":    {{Name: "random_cage_topology", Params: map[string]any{"topologies": []any{}}}},
		"bad topologies":   {{Name: "random_cage_topology", Params: map[string]any{"topologies": "FourPlusSix"}}},
	} {
		_, err := mutation.NewEngine(&mutation.Config{NumMutations: 1, Operators: ops}, f.env)
		assert.True(Te, errors.Is(err, mutation.ErrConfig), name)
	}
	_, err := mutation.NewEngine(&mutation.Config{NumMutations: 1, Operators: []mutation.OperatorConfig{topologySwap("A", "B")}}, mutation.Env{})
	assert.True(Te, errors.Is(err, mutation.ErrConfig))
	_, err = mutation.NewEngine(nil, f.env)
	assert.True(Te, errors.Is(err, mutation.ErrConfig))
	_, err = new(mutation.Engine).Run(context.Background(), nil)
	assert.True(Te, errors.Is(err, mutation.ErrConfig))
}
