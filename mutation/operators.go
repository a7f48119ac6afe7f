/*
 * operators.go, part of gocage.
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

package mutation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"

	"github.com/gocage/gocage/cage"
	"github.com/gocage/gocage/similarity"
	"github.com/gocage/gocage/units"
)

// ErrNoCandidates is returned by operators with nothing to choose from.
var ErrNoCandidates = errors.New("mutation: no candidates")

// Operator builds a new cage from a parent, which is never modified.
// The new cage is written to out.
type Operator interface {
	Name() string
	Mutate(ctx context.Context, parent *cage.Cage, out string) (*cage.Cage, error)
}

// Env has what the operators need to build new cages.
type Env struct {
	Units  *units.Factory
	Cages  *cage.Builder
	Ranker similarity.Ranker //a TanimotoRanker if nil
	Rand   *rand.Rand
}

func (E *Env) ranker() similarity.Ranker {
	if E.Ranker == nil {
		if E.Units.Oracle == nil {
			return &similarity.TanimotoRanker{}
		}
		return &similarity.TanimotoRanker{Read: E.Units.Oracle.ReadFile}
	}
	return E.Ranker
}

func (E *Env) intn(n int) int {
	if E.Rand == nil {
		return rand.IntN(n)
	}
	return E.Rand.IntN(n)
}

// replace builds the cage with the unit of parent with role r replaced
// by the one in path.
func (E *Env) replace(ctx context.Context, parent *cage.Cage, r cage.Role, path, out string) (*cage.Cage, error) {
	bb, lk := parent.BB, parent.LK
	var err error
	if r == cage.RoleBB {
		bb, err = E.Units.BuildingBlock(path, true)
	} else {
		lk, err = E.Units.Linker(path, true)
	}
	if err != nil {
		return nil, err
	}
	return E.Cages.Cage(ctx, bb, lk, parent.Topology, out, true)
}

// Constructor builds an operator from its configuration parameters.
type Constructor func(params map[string]any, env *Env) (Operator, error)

var (
	regMu        sync.RWMutex
	constructors = map[string]Constructor{}
)

// Register adds an operator constructor. Names can't be registered twice.
func Register(name string, c Constructor) error {
	regMu.Lock()
	defer regMu.Unlock()
	if _, ok := constructors[name]; ok {
		return fmt.Errorf("%w: operator %s registered twice", ErrConfig, name)
	}
	constructors[name] = c
	return nil
}

// Names returns the registered operator names, sorted.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	ret := make([]string, 0, len(constructors))
	for k := range constructors {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// New builds the operator called name.
func New(name string, params map[string]any, env *Env) (Operator, error) {
	regMu.RLock()
	c, ok := constructors[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown operator %q", ErrConfig, name)
	}
	if env == nil || env.Units == nil || env.Cages == nil {
		return nil, fmt.Errorf("%w: operator %s needs a unit factory and a cage builder", ErrConfig, name)
	}
	op, err := c(params, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, name, err)
	}
	return op, nil
}

func stringParam(params map[string]any, name string, required bool) (string, error) {
	v, ok := params[name]
	if !ok {
		if required {
			return "", fmt.Errorf("missing parameter %s", name)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s is a %T, not a string", name, v)
	}
	return s, nil
}

func stringsParam(params map[string]any, name string) ([]string, error) {
	switch v := params[name].(type) {
	case []string:
		return v, nil
	case []any:
		ret := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %s has a %T", name, e)
			}
			ret[i] = s
		}
		return ret, nil
	case nil:
		return nil, fmt.Errorf("missing parameter %s", name)
	default:
		return nil, fmt.Errorf("parameter %s is a %T, not a list", name, v)
	}
}

// database opens the "database" parameter. A directory can be given an
// "ext" parameter to select other than .mol files.
func database(params map[string]any) (similarity.Database, error) {
	spec, err := stringParam(params, "database", true)
	if err != nil {
		return nil, err
	}
	ext, err := stringParam(params, "ext", false)
	if err != nil {
		return nil, err
	}
	db, err := similarity.Open(spec)
	if err != nil {
		return nil, err
	}
	if d, ok := db.(similarity.Dir); ok && ext != "" {
		d.Ext = ext
		db = d
	}
	return db, nil
}

func closeDB(db similarity.Database) error {
	if c, ok := db.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// randomUnit replaces one unit with a random candidate from a database.
type randomUnit struct {
	name string
	role cage.Role
	db   similarity.Database
	env  *Env
}

func (R *randomUnit) Name() string { return R.name }

func (R *randomUnit) Close() error { return closeDB(R.db) }

func (R *randomUnit) Mutate(ctx context.Context, parent *cage.Cage, out string) (*cage.Cage, error) {
	cands, err := R.db.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%s: %w", R.name, ErrNoCandidates)
	}
	path := cands[R.env.intn(len(cands))].Path
	return R.env.replace(ctx, parent, R.role, path, out)
}

func newRandomUnit(name string, r cage.Role) Constructor {
	return func(params map[string]any, env *Env) (Operator, error) {
		db, err := database(params)
		if err != nil {
			return nil, err
		}
		return &randomUnit{name: name, role: r, db: db, env: env}, nil
	}
}

// topologySwap rebuilds the parent with a different topology.
type topologySwap struct {
	topologies []string
	env        *Env
}

func (T *topologySwap) Name() string { return "random_cage_topology" }

func (T *topologySwap) Mutate(ctx context.Context, parent *cage.Cage, out string) (*cage.Cage, error) {
	others := slices.DeleteFunc(slices.Clone(T.topologies), func(t string) bool { return t == parent.Topology })
	if len(others) == 0 {
		return nil, fmt.Errorf("no topology other than %s: %w", parent.Topology, ErrNoCandidates)
	}
	return T.env.Cages.Cage(ctx, parent.BB, parent.LK, others[T.env.intn(len(others))], out, true)
}

func newTopologySwap(params map[string]any, env *Env) (Operator, error) {
	tops, err := stringsParam(params, "topologies")
	if err != nil {
		return nil, err
	}
	if len(tops) == 0 {
		return nil, errors.New("empty topology list")
	}
	return &topologySwap{topologies: tops, env: env}, nil
}

// similarUnit replaces one unit with the next most similar candidate
// from a database. The ranking is done once per parent.
type similarUnit struct {
	name string
	role cage.Role
	db   similarity.Database
	env  *Env
}

func (S *similarUnit) Name() string { return S.name }

func (S *similarUnit) Close() error { return closeDB(S.db) }

func (S *similarUnit) Mutate(ctx context.Context, parent *cage.Cage, out string) (*cage.Cage, error) {
	cur, err := parent.Similar(S.role, func() ([]string, error) {
		u := parent.Unit(S.role)
		return S.env.ranker().Rank(ctx, u.PristFile(), u.Prist(), S.db)
	})
	if err != nil {
		return nil, err
	}
	path, err := cur.Next()
	if err != nil {
		return nil, fmt.Errorf("%s of %s: %w", S.name, parent.Unit(S.role).PristFile(), err)
	}
	return S.env.replace(ctx, parent, S.role, path, out)
}

func newSimilarUnit(name string, r cage.Role) Constructor {
	return func(params map[string]any, env *Env) (Operator, error) {
		db, err := database(params)
		if err != nil {
			return nil, err
		}
		return &similarUnit{name: name, role: r, db: db, env: env}, nil
	}
}

func init() {
	for name, c := range map[string]Constructor{
		"random_bb":            newRandomUnit("random_bb", cage.RoleBB),
		"random_lk":            newRandomUnit("random_lk", cage.RoleLK),
		"random_cage_topology": newTopologySwap,
		"similar_bb":           newSimilarUnit("similar_bb", cage.RoleBB),
		"similar_lk":           newSimilarUnit("similar_lk", cage.RoleLK),
	} {
		if err := Register(name, c); err != nil {
			panic(err)
		}
	}
}
