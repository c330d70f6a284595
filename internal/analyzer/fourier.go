package analyzer

import (
	"fmt"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

const (
	// fftSize is the padded transform size along each axis
	fftSize = 512

	// lowBand is the extent of the low-frequency block that is kept
	lowBand = fftSize / 2

	// quadrantSize is the edge length of each averaged block
	quadrantSize = lowBand / 2
)

// Quadrants holds the mean spectral magnitude of the four low-frequency
// blocks: A0 top-left, A1 bottom-left, A2 top-right, A3 bottom-right.
type Quadrants struct {
	A0 float64 `json:"a0"`
	A1 float64 `json:"a1"`
	A2 float64 `json:"a2"`
	A3 float64 `json:"a3"`
}

// spectrumWork holds the scratch buffers of one transform.
type spectrumWork struct {
	rowFFT  *fourier.FFT
	colFFT  *fourier.CmplxFFT
	rowIn   []float64
	rowOut  []complex128
	colIn   []complex128
	rowSpec []complex128 // rows x lowBand, row-major
}

type spectrumPool struct {
	pool sync.Pool
}

func newSpectrumPool() *spectrumPool {
	return &spectrumPool{
		pool: sync.Pool{
			New: func() interface{} {
				return &spectrumWork{
					rowFFT:  fourier.NewFFT(fftSize),
					colFFT:  fourier.NewCmplxFFT(fftSize),
					rowIn:   make([]float64, fftSize),
					rowOut:  make([]complex128, fftSize/2+1),
					colIn:   make([]complex128, fftSize),
					rowSpec: make([]complex128, fftSize*lowBand),
				}
			},
		},
	}
}

// quadrants computes the 2-D DFT of tile zero-padded to fftSize x fftSize and
// averages the magnitude over each quadrant of the [0, lowBand) block.
// Rows are transformed first with a real FFT; only the kept columns are then
// transformed along the row axis.
func (sp *spectrumPool) quadrants(tile mat.Matrix) (Quadrants, error) {
	r, c := tile.Dims()
	if r > fftSize || c > fftSize {
		return Quadrants{}, fmt.Errorf("tile %dx%d exceeds transform size %d", r, c, fftSize)
	}
	if r == 0 || c == 0 {
		return Quadrants{}, nil
	}

	w := sp.pool.Get().(*spectrumWork)
	defer sp.pool.Put(w)

	for i := 0; i < r; i++ {
		for j := range w.rowIn {
			w.rowIn[j] = 0
		}
		for j := 0; j < c; j++ {
			w.rowIn[j] = tile.At(i, j)
		}
		w.rowFFT.Coefficients(w.rowOut, w.rowIn)
		copy(w.rowSpec[i*lowBand:(i+1)*lowBand], w.rowOut[:lowBand])
	}

	var sums [4]float64
	for j := 0; j < lowBand; j++ {
		for i := range w.colIn {
			w.colIn[i] = 0
		}
		for i := 0; i < r; i++ {
			w.colIn[i] = w.rowSpec[i*lowBand+j]
		}
		w.colFFT.Coefficients(w.colIn, w.colIn)

		right := 0
		if j >= quadrantSize {
			right = 2
		}
		for i := 0; i < lowBand; i++ {
			q := right
			if i >= quadrantSize {
				q++
			}
			sums[q] += cmplx.Abs(w.colIn[i])
		}
	}

	n := float64(quadrantSize * quadrantSize)
	return Quadrants{
		A0: sums[0] / n,
		A1: sums[1] / n,
		A2: sums[2] / n,
		A3: sums[3] / n,
	}, nil
}
