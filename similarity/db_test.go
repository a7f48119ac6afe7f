/*
 * db_test.go, part of gocage.
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

package similarity_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocage/gocage/internal/chemtest"
	"github.com/gocage/gocage/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func paths(cands []similarity.Candidate) []string {
	var ret []string
	for _, c := range cands {
		ret = append(ret, c.Path)
	}
	return ret
}

func TestDir(Te *testing.T) {
	dir := Te.TempDir()
	b := chemtest.WriteChain(Te, dir, "b.mol", 6, 7)
	a := chemtest.WriteChain(Te, dir, "a.mol", 6, 8)
	chemtest.WriteChain(Te, dir, "b_HEAVY_amine.mol", 6, 45)
	c := chemtest.WriteChain(Te, dir, "c.xyz", 6, 6)
	require.NoError(Te, os.Mkdir(filepath.Join(dir, "d.mol"), 0o755))
	ctx := context.Background()
	cands, err := similarity.Dir{Path: dir}.Candidates(ctx)
	require.NoError(Te, err)
	assert.Equal(Te, []string{a, b}, paths(cands))
	assert.Nil(Te, cands[0].Fingerprint)
	cands, err = similarity.Dir{Path: dir, Ext: ".xyz"}.Candidates(ctx)
	require.NoError(Te, err)
	assert.Equal(Te, []string{c}, paths(cands))
	_, err = similarity.Dir{Path: filepath.Join(dir, "nope")}.Candidates(ctx)
	assert.Error(Te, err)
}

func TestSQLite(Te *testing.T) {
	dir := Te.TempDir()
	a := chemtest.WriteChain(Te, dir, "mols/a.mol", 6, 8)
	b := chemtest.WriteChain(Te, dir, "mols/b.mol", 6, 7, 6)
	ctx := context.Background()
	S, err := similarity.OpenSQLite(filepath.Join(dir, "db", "fp.sqlite"))
	require.NoError(Te, err)
	defer S.Close()
	S.Log = zaptest.NewLogger(Te)
	_, err = S.Candidates(ctx)
	assert.True(Te, errors.Is(err, similarity.ErrNotIndexed))
	err = S.Index(ctx, []string{b, a, filepath.Join(dir, "mols", "missing.mol")})
	assert.True(Te, errors.Is(err, similarity.ErrSkipped))
	cands, err := S.Candidates(ctx)
	require.NoError(Te, err)
	require.Equal(Te, []string{a, b}, paths(cands))
	assert.Equal(Te, similarity.DefaultRadius, cands[0].Radius)
	assert.Equal(Te, *similarity.Circular(chemtest.Chain(Te, 6, 8), similarity.DefaultRadius), *cands[0].Fingerprint)
	//reindexing replaces rows
	require.NoError(Te, S.Index(ctx, []string{a}))
	cands, err = S.Candidates(ctx)
	require.NoError(Te, err)
	assert.Len(Te, cands, 2)
}

func TestOpen(Te *testing.T) {
	dir := Te.TempDir()
	db, err := similarity.Open(dir)
	require.NoError(Te, err)
	assert.Equal(Te, similarity.Dir{Path: dir}, db)
	db, err = similarity.Open("sqlite://" + filepath.Join(dir, "x.sqlite"))
	require.NoError(Te, err)
	S, ok := db.(*similarity.SQLite)
	require.True(Te, ok)
	assert.Equal(Te, filepath.Join(dir, "x.sqlite"), S.Path())
	require.NoError(Te, S.Close())
	file := chemtest.WriteChain(Te, dir, "a.mol", 6)
	_, err = similarity.Open(file)
	assert.Error(Te, err)
	_, err = similarity.Open(filepath.Join(dir, "nope"))
	assert.Error(Te, err)
}
