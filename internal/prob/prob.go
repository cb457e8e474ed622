// Package prob provides the probability helpers shared by the policy model,
// the hidden-hand estimator and the playout simulator.
// Vector arithmetic goes through gonum's floats package.
package prob

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// NormalizePDF scales pdf in place so that its values sum to one.
func NormalizePDF(pdf []float64) {
	if len(pdf) == 0 {
		return
	}
	floats.Scale(1/floats.Sum(pdf), pdf)
}

// ExpNormalizeLogPDF turns a vector of unnormalized log-probabilities into a
// normalized pdf in place (log-sum-exp normalization).
// A row where every entry is -Inf carries no evidence and becomes uniform.
func ExpNormalizeLogPDF(logPDF []float64) {
	if len(logPDF) == 0 {
		return
	}
	normalizer := floats.LogSumExp(logPDF)
	if math.IsInf(normalizer, -1) {
		for i := range logPDF {
			logPDF[i] = 1 / float64(len(logPDF))
		}
		return
	}
	for i, x := range logPDF {
		logPDF[i] = math.Exp(x - normalizer)
	}
}

// LogAdd computes log(a + b) from log a and log b without leaving log space.
// Negative infinity is the identity element.
func LogAdd(logA, logB float64) float64 {
	logX, logY := logA, logB
	if logB > logA {
		logX, logY = logB, logA
	}
	if math.IsInf(logX, -1) {
		return logX
	}
	// log(x + y) = log x + log(1 + y/x)
	return logX + math.Log1p(math.Exp(logY-logX))
}

// SamplePDF draws an index from pdf. The pdf is expected to be normalized;
// when rounding leaves the cumulative sum short of the drawn value, the last
// index with positive probability is returned.
func SamplePDF(rng *rand.Rand, pdf []float64) int {
	sample := rng.Float64()
	partialSum := 0.0
	last := 0
	for i, p := range pdf {
		if p <= 0 {
			continue
		}
		partialSum += p
		last = i
		if partialSum >= sample {
			return i
		}
	}
	return last
}

// BinomPMF is the probability that exactly k of n independent trials succeed
// when each succeeds with probability p.
func BinomPMF(n, k int, p float64) float64 {
	if k < 0 || k > n {
		return 0
	}
	switch {
	case n == 0:
		return 1
	case p <= 0:
		if k == 0 {
			return 1
		}
		return 0
	case p >= 1:
		if k == n {
			return 1
		}
		return 0
	}
	return distuv.Binomial{N: float64(n), P: p}.Prob(float64(k))
}

// Clamp01 limits p to the closed unit interval.
func Clamp01(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
