// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package genotype

// strandCounts holds, per allele index, how many reads consistent with
// that allele were seen on the forward vs. reverse strand.
type strandCounts struct {
	forward, reverse []int
}

func newStrandCounts(numAlleles int) *strandCounts {
	return &strandCounts{forward: make([]int, numAlleles), reverse: make([]int, numAlleles)}
}

func (c *strandCounts) observe(allele int, isReverse bool) {
	if isReverse {
		c.reverse[allele]++
	} else {
		c.forward[allele]++
	}
}

// term computes the strand-balance log-multinomial term for the genotype
// (i, j): the penalty is applied once per *distinct* allele index, so a
// homozygous genotype (i == j) contributes the term for that one allele
// exactly once, not twice. This is the fix for the Open Question in
// SPEC_FULL.md §4.5/§9: the source applies this term once per genotype
// slot, double-counting it for every homozygous call.
func (c *strandCounts) term(i, j int) float64 {
	if i == j {
		return logMultinomialPMFUniform2(c.forward[i], c.reverse[i])
	}
	return logMultinomialPMFUniform2(c.forward[i], c.reverse[i]) +
		logMultinomialPMFUniform2(c.forward[j], c.reverse[j])
}
