// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package genotype

import "math"

// phredToProb converts a Phred-scaled quality into the probability it
// represents being wrong, grounded on elPrep's own
// qualityToErrorProbability (filters/bqsr.go), which uses the identical
// formula. The source genotyper this package ports works entirely in
// natural log rather than elPrep's log10 convention, so every log-space
// helper in this file is natural-log, not log10.
func phredToProb(phred float64) float64 {
	return math.Pow(10, -phred/10)
}

// logGamma is math.Lgamma without the sign return elPrep never needs
// either, grounded on filters/bqsr.go's log10Gamma (ported here to natural
// log instead of log10).
func logGamma(n int) float64 {
	v, _ := math.Lgamma(float64(n))
	return v
}

// logBinomialCoefficient is elPrep's log10BinomialCoefficient (filters/bqsr.go)
// ported to natural log.
func logBinomialCoefficient(n, k int) float64 {
	return logGamma(n+1) - logGamma(k+1) - logGamma(n-k+1)
}

// logMultinomialPMFUniform2 computes the log probability mass of observing
// exactly (a, b) outcomes of two equally likely categories (p=0.5 each)
// out of a+b independent trials. Used for the strand-balance term in
// the diploid genotype likelihood: a genotype's reads split between
// forward- and reverse-strand support should look binomial(n, 0.5) if
// strand assignment were unbiased.
func logMultinomialPMFUniform2(a, b int) float64 {
	n := a + b
	if n == 0 {
		return 0
	}
	return logBinomialCoefficient(n, a) - float64(n)*math.Ln2
}
