// Package export writes the artifacts of a finished optimization run:
// Pareto-front and schedule CSVs, the metrics document and the run summary.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/mdubois44/chargeplan/core/optimize"
	"github.com/mdubois44/chargeplan/core/pareto"
	"github.com/mdubois44/chargeplan/core/result"
)

// WriteFrontCSV writes one row per front member with its three objectives.
func WriteFrontCSV(w io.Writer, front []optimize.Solution) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"solution_id", "cost", "dissatisfaction", "peak_power"}); err != nil {
		return err
	}
	for i, sol := range front {
		rec := []string{
			strconv.Itoa(i),
			fmt.Sprintf("%.2f", sol.Objectives.Cost),
			fmt.Sprintf("%.4f", sol.Objectives.Dissatisfaction),
			fmt.Sprintf("%.2f", sol.Objectives.PeakPowerKW),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFrontCSV parses a front written by WriteFrontCSV back into objective
// vectors, dropping the solution ids.
func ReadFrontCSV(r io.Reader) ([][]float64, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) != 4 || records[0][0] != "solution_id" {
		return nil, errors.New("not a pareto front file")
	}
	front := make([][]float64, 0, len(records)-1)
	for i, rec := range records[1:] {
		point := make([]float64, 3)
		for j, field := range rec[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: parse %q: %w", i+1, field, err)
			}
			point[j] = v
		}
		front = append(front, point)
	}
	return front, nil
}

// WriteScheduleCSV writes the vehicle x hour power matrix with labeled rows
// and columns.
func WriteScheduleCSV(w io.Writer, schedule *mat.Dense) error {
	if schedule == nil {
		return errors.New("no schedule to export")
	}
	n, t := schedule.Dims()

	cw := csv.NewWriter(w)
	header := make([]string, t+1)
	header[0] = "Vehicle"
	for h := 0; h < t; h++ {
		header[h+1] = fmt.Sprintf("Hour_%02d", h)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		rec := make([]string, t+1)
		rec[0] = fmt.Sprintf("V%02d", i+1)
		for h := 0; h < t; h++ {
			rec[h+1] = fmt.Sprintf("%.2f", schedule.At(i, h))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetricsJSON writes the front-quality metrics document.
func WriteMetricsJSON(w io.Writer, m pareto.Metrics) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

type resultObjectives struct {
	Cost            float64 `json:"cost"`
	Dissatisfaction float64 `json:"dissatisfaction"`
	PeakPower       float64 `json:"peak_power"`
}

type resultMetadata struct {
	Algorithm    string `json:"algorithm"`
	ScenarioName string `json:"scenario_name"`
	PopSize      int    `json:"pop_size"`
	Generations  int    `json:"generations"`
	Evaluations  int    `json:"evaluations"`
	Seed         int64  `json:"seed"`
	Workers      int    `json:"workers"`
}

type resultSummary struct {
	TotalEnergy        float64 `json:"total_energy"`
	AvgPowerPerVehicle float64 `json:"avg_power_per_vehicle"`
	PeakHour           int     `json:"peak_hour"`
}

type resultDoc struct {
	Metrics            resultObjectives `json:"metrics"`
	NVehicles          int              `json:"n_vehicles"`
	NHours             int              `json:"n_hours"`
	SolutionsFound     int              `json:"solutions_found"`
	ExecutionTime      float64          `json:"execution_time"`
	Converged          bool             `json:"converged"`
	Timestamp          string           `json:"timestamp"`
	Metadata           resultMetadata   `json:"metadata"`
	PerformanceMetrics pareto.Metrics   `json:"performance_metrics"`
	Summary            resultSummary    `json:"summary"`
	ChargingSchedule   [][]float64      `json:"charging_schedule"`
}

// WriteResultJSON writes the full run summary, including the representative
// schedule as nested lists.
func WriteResultJSON(w io.Writer, res *result.Result) error {
	doc := resultDoc{
		Metrics: resultObjectives{
			Cost:            round(res.Objectives.Cost, 2),
			Dissatisfaction: round(res.Objectives.Dissatisfaction, 4),
			PeakPower:       round(res.Objectives.PeakPowerKW, 2),
		},
		NVehicles:      res.NVehicles,
		NHours:         res.Horizon,
		SolutionsFound: len(res.Front),
		ExecutionTime:  round(res.ElapsedSeconds, 2),
		Converged:      res.Converged,
		Timestamp:      res.Timestamp.Format(time.RFC3339),
		Metadata: resultMetadata{
			Algorithm:    res.Meta.Algorithm,
			ScenarioName: res.ScenarioName,
			PopSize:      res.Meta.PopSize,
			Generations:  res.Meta.Generations,
			Evaluations:  res.Meta.Evaluations,
			Seed:         res.Meta.Seed,
			Workers:      res.Meta.Workers,
		},
		PerformanceMetrics: res.Metrics,
		Summary: resultSummary{
			TotalEnergy:        res.TotalEnergyKWh(),
			AvgPowerPerVehicle: res.AvgPowerPerVehicleKW(),
			PeakHour:           res.PeakHour(),
		},
	}
	if res.Schedule != nil {
		rows := make([][]float64, res.NVehicles)
		for i := range rows {
			rows[i] = res.VehicleSchedule(i)
		}
		doc.ChargingSchedule = rows
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
