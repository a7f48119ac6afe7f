/*
 * config.go, part of gocage.
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
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// ErrConfig is wrapped by all the configuration errors.
var ErrConfig = errors.New("mutation: invalid configuration")

// OperatorConfig names an operator and its parameters.
type OperatorConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// Config is the configuration of an Engine. Weights, if given, are the
// relative probabilities of the operators, in the same order. OutDir is
// where the mutants are written, the working directory by default.
type Config struct {
	NumMutations int              `yaml:"num_mutations"`
	Operators    []OperatorConfig `yaml:"operators"`
	Weights      []float64        `yaml:"weights"`
	OutDir       string           `yaml:"out_dir"`
	Seed         *uint64          `yaml:"seed"`
}

// LoadConfig reads a YAML configuration file and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	C := new(Config)
	if err := yaml.Unmarshal(data, C); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}
	if err := C.Validate(); err != nil {
		return nil, err
	}
	return C, nil
}

func (C *Config) Validate() error {
	if C.NumMutations <= 0 {
		return fmt.Errorf("%w: num_mutations must be positive, not %d", ErrConfig, C.NumMutations)
	}
	if len(C.Operators) == 0 {
		return fmt.Errorf("%w: no operators", ErrConfig)
	}
	for i, o := range C.Operators {
		if o.Name == "" {
			return fmt.Errorf("%w: operator %d has no name", ErrConfig, i)
		}
	}
	if len(C.Weights) == 0 {
		return nil
	}
	if len(C.Weights) != len(C.Operators) {
		return fmt.Errorf("%w: %d weights for %d operators", ErrConfig, len(C.Weights), len(C.Operators))
	}
	for i, w := range C.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is %v", ErrConfig, i, w)
		}
	}
	if floats.Sum(C.Weights) <= 0 {
		return fmt.Errorf("%w: weights add up to zero", ErrConfig)
	}
	return nil
}

// Probabilities returns the weights normalized to add up to 1, or
// uniform probabilities if there are no weights.
func (C *Config) Probabilities() []float64 {
	ret := make([]float64, len(C.Operators))
	if len(C.Weights) == 0 {
		for i := range ret {
			ret[i] = 1
		}
	} else {
		copy(ret, C.Weights)
	}
	if s := floats.Sum(ret); s > 0 {
		floats.Scale(1/s, ret)
	}
	return ret
}
