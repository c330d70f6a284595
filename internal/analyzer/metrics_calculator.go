package analyzer

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// metricsCalculator implements MetricsCalculator over gonum matrices
type metricsCalculator struct {
	mode      GradientMode
	maxSample float64
	slicePool sync.Pool
	spectrum  *spectrumPool
}

// NewMetricsCalculator creates a metrics calculator for the given gradient
// mode. Samples are normalized by maxSample before variance is taken.
func NewMetricsCalculator(mode GradientMode, maxSample float64) MetricsCalculator {
	if maxSample <= 0 {
		maxSample = 255
	}
	return &metricsCalculator{
		mode:      mode,
		maxSample: maxSample,
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
		spectrum: newSpectrumPool(),
	}
}

// VarianceSharpness returns the population variance of the samples after
// scaling them into the unit range.
func (mc *metricsCalculator) VarianceSharpness(m mat.Matrix) float64 {
	data := mc.slicePool.Get().([]float64)
	defer func() { mc.slicePool.Put(data[:0]) }()

	data = flatten(m, data[:0])
	if len(data) == 0 {
		return 0
	}
	for i := range data {
		data[i] /= mc.maxSample
	}
	return stat.PopVariance(data, nil)
}

// Gradient returns the per-sample gradient magnitude of m. Rows are split
// into strips and processed in parallel.
func (mc *metricsCalculator) Gradient(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	src := flatten(m, make([]float64, 0, r*c))
	dst := make([]float64, r*c)

	numWorkers := runtime.NumCPU()
	if r < numWorkers {
		numWorkers = r
	}
	rowsPerWorker := (r + numWorkers - 1) / numWorkers // ceil division

	var wg sync.WaitGroup
	for startRow := 0; startRow < r; startRow += rowsPerWorker {
		endRow := startRow + rowsPerWorker
		if endRow > r {
			endRow = r
		}
		wg.Add(1)
		go func(startRow, endRow int) {
			defer wg.Done()
			for y := startRow; y < endRow; y++ {
				row := src[y*c : (y+1)*c]
				for x := 0; x < c; x++ {
					dx := axisDiff(row, x, 1, c)
					if mc.mode == GradientSingleAxis {
						dst[y*c+x] = math.Abs(dx)
						continue
					}
					dy := axisDiff(src[x:], y, c, r)
					dst[y*c+x] = math.Hypot(dx, dy)
				}
			}
		}(startRow, endRow)
	}
	wg.Wait()

	return mat.NewDense(r, c, dst)
}

// axisDiff is the first derivative at position i of an axis of n samples
// spaced stride apart in data: central difference inside, one-sided
// difference at either end.
func axisDiff(data []float64, i, stride, n int) float64 {
	switch {
	case n < 2:
		return 0
	case i == 0:
		return data[stride] - data[0]
	case i == n-1:
		return data[(n-1)*stride] - data[(n-2)*stride]
	default:
		return (data[(i+1)*stride] - data[(i-1)*stride]) / 2
	}
}

// GradientSharpness returns the mean of a gradient magnitude layer.
func (mc *metricsCalculator) GradientSharpness(grad mat.Matrix) float64 {
	data := mc.slicePool.Get().([]float64)
	defer func() { mc.slicePool.Put(data[:0]) }()

	data = flatten(grad, data[:0])
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// QuadrantEnergy returns the mean spectral magnitude of the four low
// frequency blocks of the zero-padded tile.
func (mc *metricsCalculator) QuadrantEnergy(tile mat.Matrix) (Quadrants, error) {
	return mc.spectrum.quadrants(tile)
}

// flatten appends the elements of m to dst in row-major order.
func flatten(m mat.Matrix, dst []float64) []float64 {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return dst
	}
	if rm, ok := m.(mat.RawMatrixer); ok {
		raw := rm.RawMatrix()
		for i := 0; i < raw.Rows; i++ {
			dst = append(dst, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols]...)
		}
		return dst
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst = append(dst, m.At(i, j))
		}
	}
	return dst
}
