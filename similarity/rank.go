/*
 * rank.go, part of gocage.
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

package similarity

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"

	chem "github.com/gocage/gocage"
	"golang.org/x/sync/errgroup"
)

// Ranker orders the candidates of a database by decreasing similarity
// to target, read from targetPath. targetPath itself is never ranked.
type Ranker interface {
	Rank(ctx context.Context, targetPath string, target *chem.Molecule, db Database) ([]string, error)
}

// TanimotoRanker ranks by the Tanimoto coefficient of circular
// fingerprints. Candidates without a stored fingerprint of the right
// radius are read with Read (chem.MolFileRead if nil) using up to Workers
// goroutines (GOMAXPROCS if not positive).
type TanimotoRanker struct {
	Read    func(path string) (*chem.Molecule, error)
	Radius  int
	Workers int
}

func (T *TanimotoRanker) radius() int {
	if T.Radius <= 0 {
		return DefaultRadius
	}
	return T.Radius
}

type scored struct {
	path  string
	score float64
}

func (T *TanimotoRanker) Rank(ctx context.Context, targetPath string, target *chem.Molecule, db Database) ([]string, error) {
	cands, err := db.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	self, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, err
	}
	read := T.Read
	if read == nil {
		read = chem.MolFileRead
	}
	radius := T.radius()
	tfp := Circular(target, radius)
	res := make([]scored, len(cands))
	g, ctx := errgroup.WithContext(ctx)
	workers := T.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i, c := range cands {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res[i].path = c.Path
			fp := c.Fingerprint
			if fp == nil || c.Radius != radius {
				m, err := read(c.Path)
				if err != nil {
					return fmt.Errorf("fingerprinting %s: %w", c.Path, err)
				}
				fp = Circular(m, radius)
			}
			res[i].score = Tanimoto(tfp, fp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].score != res[j].score {
			return res[i].score > res[j].score
		}
		return res[i].path < res[j].path
	})
	ret := make([]string, 0, len(res))
	for _, r := range res {
		if abs, err := filepath.Abs(r.path); err == nil && abs == self {
			continue
		}
		ret = append(ret, r.path)
	}
	return ret, nil
}
