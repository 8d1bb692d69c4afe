package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mdubois44/chargeplan/core/result"
	"github.com/mdubois44/chargeplan/infra/logger"
)

// SaveAll writes every artifact of a run under dir: the result summary, the
// schedule and front CSVs and the metrics document. Artifacts without data
// (no schedule, empty front) are skipped. Returns the paths written.
func SaveAll(res *result.Result, dir string) ([]string, error) {
	log := logger.New("export")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	ts := res.Timestamp.Format("20060102_150405")
	var written []string

	resultPath := filepath.Join(dir, fmt.Sprintf("result_%s.json", ts))
	if err := writeFile(resultPath, func(w io.Writer) error { return WriteResultJSON(w, res) }); err != nil {
		return written, err
	}
	written = append(written, resultPath)
	log.Infof("saved result to %s", resultPath)

	if res.Schedule != nil {
		path := filepath.Join(dir, fmt.Sprintf("schedule_%s.csv", ts))
		if err := writeFile(path, func(w io.Writer) error { return WriteScheduleCSV(w, res.Schedule) }); err != nil {
			return written, err
		}
		written = append(written, path)
		log.Infof("saved schedule to %s", path)
	}

	if len(res.Front) > 0 {
		path := filepath.Join(dir, fmt.Sprintf("pareto_front_%s.csv", ts))
		if err := writeFile(path, func(w io.Writer) error { return WriteFrontCSV(w, res.Front) }); err != nil {
			return written, err
		}
		written = append(written, path)
		log.Infof("saved pareto front (%d solutions) to %s", len(res.Front), path)
	}

	if res.Metrics.NSolutions > 0 {
		metricsDir := filepath.Join(dir, "metrics")
		if err := os.MkdirAll(metricsDir, 0o755); err != nil {
			return written, fmt.Errorf("create metrics dir: %w", err)
		}
		path := filepath.Join(metricsDir, fmt.Sprintf("metrics_%s.json", ts))
		if err := writeFile(path, func(w io.Writer) error { return WriteMetricsJSON(w, res.Metrics) }); err != nil {
			return written, err
		}
		written = append(written, path)
		log.Infof("saved metrics to %s", path)
	}

	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
