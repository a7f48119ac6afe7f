/*
 * metrics.go, part of gocage.
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
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated by an Engine.
type Metrics struct {
	Attempts  *prometheus.CounterVec
	Discarded prometheus.Counter
	Rounds    prometheus.Counter
}

// NewMetrics creates the collectors and, if reg is not nil, registers
// them.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	M := &Metrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gocage",
				Subsystem: "mutation",
				Name:      "attempts_total",
				Help:      "Mutation attempts by operator and outcome.",
			},
			[]string{"operator", "outcome"},
		),
		Discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gocage",
			Subsystem: "mutation",
			Name:      "discarded_total",
			Help:      "Mutants dropped for being already in the population.",
		}),
		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gocage",
			Subsystem: "mutation",
			Name:      "rounds_total",
			Help:      "Mutation rounds run.",
		}),
	}
	if reg == nil {
		return M, nil
	}
	for _, c := range []prometheus.Collector{M.Attempts, M.Discarded, M.Rounds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return M, nil
}

func (M *Metrics) attempt(operator string, ok bool) {
	if M == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	M.Attempts.WithLabelValues(operator, outcome).Inc()
}

func (M *Metrics) round(discarded int) {
	if M == nil {
		return
	}
	M.Rounds.Inc()
	M.Discarded.Add(float64(discarded))
}
