package validate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteCSV writes the per-target rows followed by an "overall" row. NaN
// metrics are written literally so downstream tooling can tell
// insufficient data from zero error.
func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"target_index", "target_x", "target_y", "accuracy_px", "precision_px", "samples"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range s.Targets {
		rec := []string{
			strconv.Itoa(row.Index),
			formatFloat(row.X),
			formatFloat(row.Y),
			formatFloat(row.Accuracy),
			formatFloat(row.Precision),
			strconv.Itoa(row.Samples),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	overall := []string{"overall", "", "", formatFloat(s.Accuracy), formatFloat(s.Precision), ""}
	if err := cw.Write(overall); err != nil {
		return fmt.Errorf("failed to write CSV summary row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteHTML renders a scatter chart of observed gaze positions against
// the targets, one HTML document per validation run.
func WriteHTML(w io.Writer, trials []Trial, s Summary) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Gaze validation",
			Subtitle: fmt.Sprintf("accuracy %s px, precision %s px", formatFloat(s.Accuracy), formatFloat(s.Precision)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (px)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (px)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	targetData := make([]opts.ScatterData, 0, len(trials))
	observedData := make([]opts.ScatterData, 0)
	for _, trial := range trials {
		targetData = append(targetData, opts.ScatterData{
			Value:      []interface{}{trial.Target.X, trial.Target.Y},
			SymbolSize: 16,
		})
		for _, rec := range trial.Records {
			x, y, ok := rec.Binocular()
			if !ok {
				continue
			}
			observedData = append(observedData, opts.ScatterData{
				Value:      []interface{}{x, y},
				SymbolSize: 4,
			})
		}
	}

	scatter.AddSeries("targets", targetData)
	scatter.AddSeries("observed", observedData)
	return scatter.Render(w)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
