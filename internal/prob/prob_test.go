package prob

import (
	"math"
	"math/rand/v2"
	"testing"
)

const tolerance = 1e-9

func TestNormalizePDF(t *testing.T) {
	pdf := []float64{1, 3, 4}
	NormalizePDF(pdf)

	want := []float64{0.125, 0.375, 0.5}
	for i := range want {
		if math.Abs(pdf[i]-want[i]) > tolerance {
			t.Errorf("pdf[%d] = %v, want %v", i, pdf[i], want[i])
		}
	}
}

func TestExpNormalizeLogPDF(t *testing.T) {
	logPDF := []float64{math.Log(2), math.Log(6), math.Inf(-1)}
	ExpNormalizeLogPDF(logPDF)

	want := []float64{0.25, 0.75, 0}
	sum := 0.0
	for i := range want {
		if math.Abs(logPDF[i]-want[i]) > tolerance {
			t.Errorf("pdf[%d] = %v, want %v", i, logPDF[i], want[i])
		}
		if logPDF[i] < 0 {
			t.Errorf("pdf[%d] = %v is negative", i, logPDF[i])
		}
		sum += logPDF[i]
	}
	if math.Abs(sum-1) > tolerance {
		t.Errorf("sum = %v, want 1", sum)
	}
}

func TestExpNormalizeLogPDFLargeMagnitudes(t *testing.T) {
	logPDF := []float64{-5000, -5000 + math.Log(3)}
	ExpNormalizeLogPDF(logPDF)

	if math.Abs(logPDF[0]-0.25) > tolerance || math.Abs(logPDF[1]-0.75) > tolerance {
		t.Errorf("pdf = %v, want [0.25 0.75]", logPDF)
	}
}

func TestExpNormalizeLogPDFAllNegInf(t *testing.T) {
	logPDF := []float64{math.Inf(-1), math.Inf(-1)}
	ExpNormalizeLogPDF(logPDF)

	for i, p := range logPDF {
		if p != 0.5 {
			t.Errorf("pdf[%d] = %v, want 0.5", i, p)
		}
	}
}

func TestLogAdd(t *testing.T) {
	got := LogAdd(math.Log(2), math.Log(3))
	if math.Abs(got-math.Log(5)) > tolerance {
		t.Errorf("LogAdd(log 2, log 3) = %v, want %v", got, math.Log(5))
	}
}

func TestLogAddIdentity(t *testing.T) {
	for _, a := range []float64{-1e6, -42.5, -1, 0, 3.25, 700} {
		if got := LogAdd(a, math.Inf(-1)); got != a {
			t.Errorf("LogAdd(%v, -Inf) = %v", a, got)
		}
		if got := LogAdd(math.Inf(-1), a); got != a {
			t.Errorf("LogAdd(-Inf, %v) = %v", a, got)
		}
	}
	if got := LogAdd(math.Inf(-1), math.Inf(-1)); !math.IsInf(got, -1) {
		t.Errorf("LogAdd(-Inf, -Inf) = %v, want -Inf", got)
	}
}

func TestLogAddAssociative(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		a := rng.Float64()*200 - 100
		b := rng.Float64()*200 - 100
		c := rng.Float64()*200 - 100

		left := LogAdd(LogAdd(a, b), c)
		right := LogAdd(a, LogAdd(b, c))
		if math.Abs(left-right) > 1e-9*math.Max(1, math.Abs(left)) {
			t.Fatalf("LogAdd not associative for (%v, %v, %v): %v vs %v", a, b, c, left, right)
		}
	}
}

func TestSamplePDFFrequencies(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	pdf := []float64{0.2, 0, 0.8}
	counts := make([]int, len(pdf))

	const n = 20000
	for i := 0; i < n; i++ {
		counts[SamplePDF(rng, pdf)]++
	}

	if counts[1] != 0 {
		t.Errorf("zero-probability index sampled %d times", counts[1])
	}
	frac := float64(counts[2]) / n
	if frac < 0.77 || frac > 0.83 {
		t.Errorf("index 2 frequency = %.3f, want ~0.8", frac)
	}
}

func TestSamplePDFShortSum(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	pdf := []float64{0, 1e-12, 0}
	for i := 0; i < 100; i++ {
		if got := SamplePDF(rng, pdf); got != 1 {
			t.Fatalf("SamplePDF = %d, want 1", got)
		}
	}
}

func TestBinomPMF(t *testing.T) {
	tests := []struct {
		n, k int
		p    float64
		want float64
	}{
		{4, 2, 0.5, 6.0 / 16},
		{3, 0, 0.25, 27.0 / 64},
		{3, 3, 0.25, 1.0 / 64},
		{5, 1, 0, 0},
		{5, 0, 0, 1},
		{5, 5, 1, 1},
		{5, 4, 1, 0},
		{0, 0, 0.3, 1},
		{2, 3, 0.5, 0},
	}

	for _, tt := range tests {
		got := BinomPMF(tt.n, tt.k, tt.p)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("BinomPMF(%d, %d, %v) = %v, want %v", tt.n, tt.k, tt.p, got, tt.want)
		}
	}
}

func TestBinomPMFSumsToOne(t *testing.T) {
	for n := 1; n <= 8; n++ {
		sum := 0.0
		for k := 0; k <= n; k++ {
			sum += BinomPMF(n, k, 0.37)
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("sum over k of BinomPMF(%d, k, 0.37) = %v", n, sum)
		}
	}
}
