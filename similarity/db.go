/*
 * db.go, part of gocage.
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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chem "github.com/gocage/gocage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Candidate is a molecule file in a database. Fingerprint is nil unless
// the database stores it, in which case Radius is the radius used.
type Candidate struct {
	Path        string
	Fingerprint *Fingerprint
	Radius      int
}

// Database is a source of candidate molecules.
type Database interface {
	Candidates(ctx context.Context) ([]Candidate, error)
}

// Dir is a directory of molecule files. Only the files ending in Ext
// (.mol if empty) are candidates, in name order. The substituted
// variants written next to the pristine files are skipped.
type Dir struct {
	Path string
	Ext  string
}

func (D Dir) ext() string {
	if D.Ext == "" {
		return ".mol"
	}
	return D.Ext
}

func (D Dir) Candidates(ctx context.Context) ([]Candidate, error) {
	entries, err := os.ReadDir(D.Path)
	if err != nil {
		return nil, err
	}
	var ret []Candidate
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, D.ext()) || strings.Contains(name, "_HEAVY") {
			continue
		}
		ret = append(ret, Candidate{Path: filepath.Join(D.Path, name)})
	}
	return ret, nil
}

var (
	// ErrNotIndexed is returned by SQLite databases with no rows.
	ErrNotIndexed = errors.New("similarity: database has not been indexed")
	ErrSkipped    = errors.New("similarity: some candidates were not indexed")
)

// SQLite is a database of candidate paths and their fingerprints,
// stored in a SQLite file.
type SQLite struct {
	Read   func(path string) (*chem.Molecule, error) //chem.MolFileRead by default
	Radius int
	Log    *zap.Logger

	db   *sql.DB
	path string
}

// OpenSQLite opens, or creates, the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS candidates (
		path TEXT PRIMARY KEY,
		radius INTEGER NOT NULL,
		fp BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create candidates table: %w", err)
	}
	return &SQLite{Radius: DefaultRadius, db: db, path: path}, nil
}

func (S *SQLite) Path() string { return S.path }

func (S *SQLite) Close() error { return S.db.Close() }

func (S *SQLite) log() *zap.Logger {
	if S.Log == nil {
		return zap.NewNop()
	}
	return S.Log
}

func (S *SQLite) read(path string) (*chem.Molecule, error) {
	if S.Read == nil {
		return chem.MolFileRead(path)
	}
	return S.Read(path)
}

// Index reads the molecule files in paths and stores their fingerprints,
// replacing any previous row for the same path. Files that can't be
// read are skipped, and their errors returned together once the rest
// are stored.
func (S *SQLite) Index(ctx context.Context, paths []string) (retErr error) {
	tx, err := S.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO candidates (path, radius, fp) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	var skipped error
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		m, err := S.read(abs)
		if err != nil {
			S.log().Warn("skipping candidate", zap.String("file", abs), zap.Error(err))
			skipped = multierr.Append(skipped, fmt.Errorf("%s: %w", abs, err))
			continue
		}
		fp := Circular(m, S.Radius)
		if _, err := stmt.ExecContext(ctx, abs, S.Radius, fp.Bytes()); err != nil {
			return fmt.Errorf("insert %s: %w", abs, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if skipped != nil {
		return fmt.Errorf("%w: %w", ErrSkipped, skipped)
	}
	return nil
}

func (S *SQLite) Candidates(ctx context.Context) ([]Candidate, error) {
	rows, err := S.db.QueryContext(ctx, `SELECT path, radius, fp FROM candidates ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var ret []Candidate
	for rows.Next() {
		var c Candidate
		var blob []byte
		if err := rows.Scan(&c.Path, &c.Radius, &blob); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if c.Fingerprint, err = FingerprintFromBytes(blob); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Path, err)
		}
		ret = append(ret, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("%s: %w", S.path, ErrNotIndexed)
	}
	return ret, nil
}

// Open returns the database described by spec: a SQLite file for
// "sqlite://<file>", a directory of .mol files otherwise.
func Open(spec string) (Database, error) {
	if file, ok := strings.CutPrefix(spec, "sqlite://"); ok {
		return OpenSQLite(file)
	}
	st, err := os.Stat(spec)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("similarity: %s is not a directory", spec)
	}
	return Dir{Path: spec}, nil
}
