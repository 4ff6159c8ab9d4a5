// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

/*
Package genotype computes, for a site's allele set and the per-read
affinities scored against it, every possible diploid genotype's log
likelihood, log prior, and log posterior, sorted by descending posterior.
*/
package genotype

import (
	"math"
	"sort"

	"github.com/exascience/vg-genotyper/affinity"
)

// ReadObservation is one read's consistency record against every allele of
// a site, plus the quality terms the likelihood needs when the read
// matches none of a genotype's two alleles.
type ReadObservation struct {
	Affinities []affinity.Affinity // one per allele, same order as the allele list
	UseMapQ    bool
	MapQProb   float64 // P(wrong) implied by mapping quality; ignored unless UseMapQ
	BaseQProb  float64 // P(wrong) implied by mean base quality over the site
}

// Genotype is one unordered pair of allele indices together with its
// likelihood, prior, and posterior under the model in SPEC_FULL.md §4.5.
type Genotype struct {
	AlleleA, AlleleB int // AlleleB <= AlleleA
	LogLikelihood    float64
	LogPrior         float64
	LogPosterior     float64
}

// Enumerate computes every genotype (i, j), 0 <= j <= i < numAlleles, and
// returns them sorted by descending LogPosterior.
func Enumerate(numAlleles int, reads []ReadObservation, hetPrior float64) []*Genotype {
	counts := newStrandCounts(numAlleles)
	for _, r := range reads {
		for a, aff := range r.Affinities {
			if aff.Consistent {
				counts.observe(a, aff.IsReverse)
			}
		}
	}

	logHet := math.Log(hetPrior)
	logHom := math.Log(1 - hetPrior)

	var out []*Genotype
	for i := 0; i < numAlleles; i++ {
		for j := 0; j <= i; j++ {
			logPrior := logHom
			if i != j {
				logPrior = logHet
			}
			logLikelihood := readLikelihoodSum(reads, i, j) + counts.term(i, j)
			out = append(out, &Genotype{
				AlleleA:       i,
				AlleleB:       j,
				LogLikelihood: logLikelihood,
				LogPrior:      logPrior,
				LogPosterior:  logLikelihood + logPrior,
			})
		}
	}

	sort.Slice(out, func(a, b int) bool {
		return out[a].LogPosterior > out[b].LogPosterior
	})
	return out
}

func readLikelihoodSum(reads []ReadObservation, i, j int) float64 {
	var sum float64
	for _, r := range reads {
		sum += readTerm(r, i, j)
	}
	return sum
}

func readTerm(r ReadObservation, i, j int) float64 {
	k := 0
	if i < len(r.Affinities) && r.Affinities[i].Consistent {
		k++
	}
	if j != i && j < len(r.Affinities) && r.Affinities[j].Consistent {
		k++
	}
	if k == 0 {
		pWrong := r.BaseQProb
		if r.UseMapQ {
			pWrong = 1 - (1-r.MapQProb)*(1-r.BaseQProb)
		}
		return math.Log(pWrong)
	}
	// k counts distinct alleles of the pair {i, j} (a set, so a homozygous
	// genotype can only contribute k in {0, 1}); the denominator is always
	// the ploidy (2), not the number of distinct alleles in the genotype.
	return math.Log(float64(k) / 2.0)
}
