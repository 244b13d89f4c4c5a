package arima

import "math"

// maxStartPACF keeps starting partial autocorrelations away from the unit
// circle, where the parameter map is flat.
const maxStartPACF = 0.9

// squash maps the real line onto (-1, 1).
func squash(u float64) float64 {
	return u / math.Sqrt(1+u*u)
}

// unsquash is the inverse of squash on (-1, 1).
func unsquash(r float64) float64 {
	return r / math.Sqrt(1-r*r)
}

// pacfToCoeffs turns partial autocorrelations in (-1, 1) into the
// coefficients of a stationary autoregression 1 - φ₁L - ... - φₖLᵏ using
// the Durbin-Levinson recursion.
func pacfToCoeffs(r []float64) []float64 {
	k := len(r)
	phi := make([]float64, k)
	prev := make([]float64, k)

	for m := 0; m < k; m++ {
		copy(prev, phi)
		phi[m] = r[m]
		for i := 0; i < m; i++ {
			phi[i] = prev[i] - r[m]*prev[m-1-i]
		}
	}

	return phi
}

// layout describes how the unconstrained solver vector maps onto the model.
type layout struct {
	p, q     int
	withMean bool
}

func (l layout) size() int {
	n := l.p + l.q
	if l.withMean {
		n++
	}
	return n
}

// unpack converts solver coordinates into AR coefficients, MA coefficients
// and the mean. AR polynomials produced this way are always stationary and
// MA polynomials always invertible.
func (l layout) unpack(x []float64) (ar, ma []float64, mean float64) {
	r := make([]float64, l.p)
	for i := range r {
		r[i] = squash(x[i])
	}
	ar = pacfToCoeffs(r)

	s := make([]float64, l.q)
	for j := range s {
		s[j] = squash(x[l.p+j])
	}
	ma = pacfToCoeffs(s)
	for j := range ma {
		ma[j] = -ma[j]
	}

	if l.withMean {
		mean = x[l.p+l.q]
	}
	return ar, ma, mean
}

// start builds the initial solver vector from the sample partial
// autocorrelations of the (differenced) series; MA terms start at zero.
func (l layout) start(pacf []float64, mean float64) []float64 {
	x := make([]float64, l.size())
	for i := 0; i < l.p && i+1 < len(pacf); i++ {
		r := math.Max(-maxStartPACF, math.Min(maxStartPACF, pacf[i+1]))
		x[i] = unsquash(r)
	}
	if l.withMean {
		x[l.p+l.q] = mean
	}
	return x
}
