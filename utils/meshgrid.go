package utils

import "gonum.org/v1/gonum/mat"

// Multiple generates the cartesian product of the given per-dimension values.
// Row r of the result holds one point; the last dimension varies fastest.
func Multiple(x [][]float64) *mat.Dense {
	dim := len(x)
	dims := make([]int, dim)
	for i := range x {
		dims[i] = len(x[i])
	}
	sz := size(dims)
	if sz == 0 || dim == 0 {
		return nil
	}
	sub := make([]int, dim)
	matOut := mat.NewDense(sz, dim, nil)
	for i := 0; i < sz; i++ {
		subFor(sub, i, dims)
		for j := 0; j < dim; j++ {
			matOut.Set(i, j, x[j][sub[j]])
		}
	}
	return matOut
}

func size(dims []int) int {
	n := 1
	for _, v := range dims {
		n *= v
	}
	return n
}

// subFor fills sub with the per-dimension indices of linear index idx, last
// dimension fastest.
func subFor(sub []int, idx int, dims []int) {
	for i := len(dims) - 1; i >= 0; i-- {
		sub[i] = idx % dims[i]
		idx /= dims[i]
	}
}
