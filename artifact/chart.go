package artifact

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-pricecast/multistep"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineTSeries generates an echart multi-line chart sharing one time axis. Each series in y must
// have the same length as t. NaN points are left out.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	x := make([]string, len(t))
	for i, ts := range t {
		x[i] = ts.UTC().Format(time.RFC3339)
	}
	line = line.SetXAxis(x)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData(y[i]))
	}
	return line
}

// LineHorizons charts future values against their step count
func LineHorizons(title string, future []multistep.Point) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	x := make([]string, len(future))
	y := make([]float64, len(future))
	for i, p := range future {
		x[i] = strconv.Itoa(p.Horizon)
		y[i] = p.Value
	}
	return line.SetXAxis(x).AddSeries("Predicted", lineData(y))
}

func lineData(y []float64) []opts.LineData {
	res := make([]opts.LineData, len(y))
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			res[i] = opts.LineData{Value: "-"}
			continue
		}
		res[i] = opts.LineData{Value: v}
	}
	return res
}

// WriteChart renders <model>_<COIN>_Fit.html with the actual vs predicted series and the future
// values when any are given. Nothing is written when charts are disabled.
func (w *Writer) WriteChart(model, coin string, preds []Prediction, future []multistep.Point) (string, error) {
	if !w.opt.Charts {
		return "", nil
	}
	path, err := w.path(model, coin, "Fit", ".html")
	if err != nil {
		return "", err
	}

	t := make([]time.Time, len(preds))
	actual := make([]float64, len(preds))
	predicted := make([]float64, len(preds))
	for i, p := range preds {
		t[i], actual[i], predicted[i] = p.T, p.Actual, p.Predicted
	}

	title := fmt.Sprintf("%s %s", model, strings.ToUpper(coin))
	page := components.NewPage()
	page.AddCharts(
		LineTSeries(title+" Fit", []string{"Actual", "Predicted"}, t, [][]float64{actual, predicted}),
	)
	if len(future) > 0 {
		page.AddCharts(LineHorizons(title+" Future", future))
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("unable to create %s, %w", path, err)
	}
	if err := page.Render(file); err != nil {
		file.Close()
		return "", fmt.Errorf("unable to render %s, %w", path, err)
	}
	return path, file.Close()
}
