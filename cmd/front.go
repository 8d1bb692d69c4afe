package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mdubois44/chargeplan/core/pareto"
	"github.com/mdubois44/chargeplan/infra/logger"
	"github.com/mdubois44/chargeplan/pkg/export"
)

var frontMetricsOut string

var frontCmd = &cobra.Command{
	Use:   "front",
	Short: "Pareto front utilities",
}

var frontMetricsCmd = &cobra.Command{
	Use:   "metrics <front-csv>",
	Short: "Compute quality metrics for an exported front",
	Args:  cobra.ExactArgs(1),
	RunE:  runFrontMetrics,
}

func init() {
	frontMetricsCmd.Flags().StringVarP(&frontMetricsOut, "output", "o", "", "write the metrics JSON here instead of stdout")
	frontCmd.AddCommand(frontMetricsCmd)
	rootCmd.AddCommand(frontCmd)
}

func runFrontMetrics(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	front, err := export.ReadFrontCSV(f)
	if err != nil {
		return fmt.Errorf("read front: %w", err)
	}
	m := pareto.NewCalculator(logger.New("front-metrics")).CalculateAll(front)

	if frontMetricsOut == "" {
		return export.WriteMetricsJSON(cmd.OutOrStdout(), m)
	}
	out, err := os.Create(frontMetricsOut)
	if err != nil {
		return err
	}
	if err := export.WriteMetricsJSON(out, m); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
