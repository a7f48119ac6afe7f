/*
 * operators_test.go, part of gocage.
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
	"path/filepath"
	"testing"

	"github.com/gocage/gocage/cage"
	"github.com/gocage/gocage/internal/chemtest"
	"github.com/gocage/gocage/mutation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type broken string

func (B broken) Name() string { return string(B) }

func (B broken) Mutate(ctx context.Context, parent *cage.Cage, out string) (*cage.Cage, error) {
	if B == "panicking" {
		panic("no way")
	}
	return nil, nil
}

func init() {
	for _, name := range []string{"panicking", "empty_handed"} {
		if err := mutation.Register(name, func(map[string]any, *mutation.Env) (mutation.Operator, error) {
			return broken(name), nil
		}); err != nil {
			panic(err)
		}
	}
}

func TestRegistry(Te *testing.T) {
	names := mutation.Names()
	for _, n := range []string{"random_bb", "random_lk", "random_cage_topology", "similar_bb", "similar_lk"} {
		assert.Contains(Te, names, n)
	}
	err := mutation.Register("random_bb", nil)
	assert.True(Te, errors.Is(err, mutation.ErrConfig))
}

func TestBrokenOperators(Te *testing.T) {
	f := newFixture(Te)
	pop := f.population(Te)
	cfg := &mutation.Config{
		NumMutations: 3,
		Operators:    []mutation.OperatorConfig{{Name: "panicking"}, {Name: "empty_handed"}},
	}
	E, err := mutation.NewEngine(cfg, f.env, seeded())
	require.NoError(Te, err)
	assert.Equal(Te, []string{"panicking", "empty_handed"}, E.Operators())
	R, err := E.Run(context.Background(), pop)
	require.NoError(Te, err)
	assert.Empty(Te, R.Mutants)
	assert.Len(Te, R.Failures(), 3)
	for _, a := range R.Failures() {
		assert.True(Te, errors.Is(a.Err, mutation.ErrMutationAttempt))
	}
}

func TestRandomUnits(Te *testing.T) {
	f := newFixture(Te)
	parent := f.cage(Te, "p", "FourPlusSix", 7, 6, 7)
	bbdb := filepath.Join(f.dir, "amine", "db")
	other := chemtest.WriteChain(Te, bbdb, "other.mol", 7, 6, 6, 6, 6, 7)
	lkdb := filepath.Join(f.dir, "aldehyde", "db")
	alt := chemtest.WriteChain(Te, lkdb, "alt.sdf", 8, 6, 6, 8)
	chemtest.WriteChain(Te, lkdb, "ignored.mol", 8, 6, 8)
	cfg := &mutation.Config{
		NumMutations: 2,
		Operators: []mutation.OperatorConfig{
			{Name: "random_bb", Params: map[string]any{"database": bbdb}},
			{Name: "random_lk", Params: map[string]any{"database": lkdb, "ext": ".sdf"}},
		},
		OutDir: filepath.Join(f.dir, "out"),
	}
	both := mutation.SelectorFunc(func(p []*cage.Cage) []*cage.Cage { return []*cage.Cage{p[0], p[0], p[0], p[0], p[0], p[0]} })
	E, err := mutation.NewEngine(cfg, f.env, mutation.WithSelector(both), seeded())
	require.NoError(Te, err)
	defer E.Close()
	for i := 0; i < 5; i++ {
		R, err := E.Run(context.Background(), []*cage.Cage{parent})
		require.NoError(Te, err)
		require.Len(Te, R.Mutants, 2)
		for _, a := range R.Successes() {
			m := a.Mutant
			assert.Equal(Te, parent.Topology, m.Topology)
			switch a.Operator {
			case "random_bb":
				assert.Equal(Te, other, m.BB.PristFile())
				assert.Same(Te, parent.LK, m.LK)
			case "random_lk":
				assert.Equal(Te, alt, m.LK.PristFile())
				assert.Same(Te, parent.BB, m.BB)
			default:
				Te.Errorf("unexpected operator %s", a.Operator)
			}
		}
	}
	//the parent is untouched
	assert.Equal(Te, "FourPlusSix", parent.Topology)
	assert.Equal(Te, 3, parent.BB.Prist().Len())
}

func TestWeights(Te *testing.T) {
	f := newFixture(Te)
	pop := f.population(Te)
	cfg := &mutation.Config{
		NumMutations: 3,
		Operators:    []mutation.OperatorConfig{{Name: "panicking"}, topologySwap("FourPlusSix", "SixPlusNine")},
		Weights:      []float64{0, 2},
	}
	E, err := mutation.NewEngine(cfg, f.env, seeded())
	require.NoError(Te, err)
	for i := 0; i < 10; i++ {
		R, err := E.Run(context.Background(), pop)
		require.NoError(Te, err)
		assert.Len(Te, R.Successes(), 3)
		assert.Empty(Te, R.Failures())
	}
	assert.Equal(Te, int64(30), E.Calls())
}
