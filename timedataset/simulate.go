package timedataset

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateT returns n timestamps spaced by interval beginning at start
func GenerateT(n int, interval time.Duration, start time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.Add(interval*time.Duration(i)))
	}
	return t
}

// Series is a generated value series used to compose synthetic prices
type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

func GenerateLinearY(n int, bias, slope float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, bias+slope*float64(i))
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// Synthetic builds a price dataset from a price series. Open is the previous price, high and low
// bracket the pair by 1%, volume is constant and change_pct is the percent change from open.
func Synthetic(t []time.Time, price Series) *Dataset {
	rows := make([]Row, len(t))
	for i := range t {
		p := price[i]
		open := p
		if i > 0 {
			open = price[i-1]
		}
		change := 0.0
		if open != 0 {
			change = (p - open) / open * 100.0
		}
		rows[i] = Row{
			T: t[i],
			Values: []float64{
				p,
				open,
				math.Max(p, open) * 1.01,
				math.Min(p, open) * 0.99,
				1000.0,
				change,
			},
		}
	}
	d, _ := New(PriceFields, rows)
	return d
}
