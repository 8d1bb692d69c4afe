package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdubois44/chargeplan/app"
	"github.com/mdubois44/chargeplan/config"
	"github.com/mdubois44/chargeplan/core/result"
	"github.com/mdubois44/chargeplan/infra/acn"
	"github.com/mdubois44/chargeplan/infra/cache"
)

var (
	optGenerations int
	optPopSize     int
	optSeed        int64
	optWorkers     int
	optOutput      string
	optNoSave      bool
	optNoProgress  bool

	synthNVehicles int

	acnSite    string
	acnDate    string
	acnLimit   int
	acnNoCache bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search charging schedules for a scenario",
}

var optimizeSyntheticCmd = &cobra.Command{
	Use:   "synthetic",
	Short: "Optimize a generated scenario",
	RunE:  runOptimizeSynthetic,
}

var optimizeACNCmd = &cobra.Command{
	Use:   "acn",
	Short: "Optimize a scenario built from ACN-Data charging sessions",
	RunE:  runOptimizeACN,
}

var optimizeFileCmd = &cobra.Command{
	Use:   "file <scenario-file>",
	Short: "Optimize a scenario loaded from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimizeFile,
}

func init() {
	pf := optimizeCmd.PersistentFlags()
	pf.IntVar(&optGenerations, "generations", 1500, "generation budget")
	pf.IntVar(&optPopSize, "pop-size", 100, "population size")
	pf.Int64Var(&optSeed, "seed", 42, "random seed for the search and the synthetic generator")
	pf.IntVar(&optWorkers, "workers", 0, "parallel evaluation workers, 0 uses all CPUs")
	pf.StringVarP(&optOutput, "output", "o", "", "directory for result artifacts")
	pf.BoolVar(&optNoSave, "no-save", false, "skip writing result artifacts")
	pf.BoolVar(&optNoProgress, "no-progress", false, "disable the progress bar")

	optimizeSyntheticCmd.Flags().IntVar(&synthNVehicles, "n-vehicles", 30, "fleet size")

	af := optimizeACNCmd.Flags()
	af.StringVar(&acnSite, "site", "caltech", "ACN site identifier")
	af.StringVar(&acnDate, "date", "2019-07-15", "day to fetch, formatted 2006-01-02")
	af.IntVar(&acnLimit, "limit", 30, "maximum sessions to fetch, 0 for all")
	af.BoolVar(&acnNoCache, "no-cache", false, "bypass the scenario cache")

	optimizeCmd.AddCommand(optimizeSyntheticCmd, optimizeACNCmd, optimizeFileCmd)
	rootCmd.AddCommand(optimizeCmd)
}

// applySearchFlags layers explicit command-line values over the configured
// ones. A flag wins when the user set it or when the config left the value
// empty.
func applySearchFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("generations") || cfg.Optimizer.Generations == 0 {
		cfg.Optimizer.Generations = optGenerations
	}
	if f.Changed("pop-size") || cfg.Optimizer.PopSize == 0 {
		cfg.Optimizer.PopSize = optPopSize
	}
	if f.Changed("seed") || cfg.Optimizer.Seed == 0 {
		cfg.Optimizer.Seed = optSeed
	}
	if f.Changed("seed") {
		cfg.Synthetic.Seed = optSeed
	}
	if f.Changed("workers") {
		cfg.Optimizer.Workers = optWorkers
	}
	if optOutput != "" {
		cfg.Output.Dir = optOutput
	}
}

func runOptimizeSynthetic(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applySearchFlags(cmd, cfg)
	if cmd.Flags().Changed("n-vehicles") || cfg.Synthetic.NVehicles == 0 {
		cfg.Synthetic.NVehicles = synthNVehicles
	}
	if cfg.Synthetic.Horizon == 0 {
		cfg.Synthetic.Horizon = cfg.Scenario.Horizon
	}
	if cfg.Synthetic.SiteMaxPowerKW == 0 {
		cfg.Synthetic.SiteMaxPowerKW = cfg.Scenario.SiteMaxPowerKW
	}
	return runOptimize(cmd, cfg, app.NewSyntheticSource(cfg.Synthetic))
}

func runOptimizeACN(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applySearchFlags(cmd, cfg)
	f := cmd.Flags()
	if f.Changed("site") || cfg.ACN.Site == "" {
		cfg.ACN.Site = acnSite
	}
	if f.Changed("date") || cfg.ACN.Date == "" {
		cfg.ACN.Date = acnDate
	}
	if f.Changed("limit") || cfg.ACN.Limit == 0 {
		cfg.ACN.Limit = acnLimit
	}

	var store *cache.FileCache
	if !acnNoCache && !cfg.Cache.Disabled {
		store, err = cache.New(cfg.Cache.Dir, time.Duration(cfg.Cache.TTLSeconds*float64(time.Second)))
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
	}
	src, err := app.NewACNSource(acn.NewClient(cfg.ACN), store, cfg.Scenario.SiteMaxPowerKW, cfg.Scenario.Horizon)
	if err != nil {
		return err
	}
	return runOptimize(cmd, cfg, src)
}

func runOptimizeFile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applySearchFlags(cmd, cfg)
	return runOptimize(cmd, cfg, app.NewFileSource(args[0]))
}

func runOptimize(cmd *cobra.Command, cfg *config.Config, src app.Source) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(cfg, src)
	if err != nil {
		return err
	}
	if optNoSave {
		svc.SetSave(false)
	}

	var barDone <-chan struct{}
	if !optNoProgress {
		barDone = watchProgress(svc.Events())
	}
	res, runErr := svc.Run(ctx)
	svc.Close()
	if barDone != nil {
		<-barDone
	}
	if runErr != nil {
		return runErr
	}
	printSummary(cmd.OutOrStdout(), res)
	return nil
}

func printSummary(w io.Writer, res *result.Result) {
	fmt.Fprintf(w, "scenario %s: %d vehicles over %d hours\n", res.ScenarioName, res.NVehicles, res.Horizon)
	if !res.Converged {
		fmt.Fprintln(w, "no feasible schedule found; try more generations or a larger population")
		return
	}
	fmt.Fprintf(w, "solutions found: %d\n", len(res.Front))
	fmt.Fprintf(w, "best cost %.2f, dissatisfaction %.4f, peak %.2f kW\n",
		res.Objectives.Cost, res.Objectives.Dissatisfaction, res.Objectives.PeakPowerKW)
	if res.Metrics.Hypervolume != nil {
		fmt.Fprintf(w, "hypervolume %.4f\n", *res.Metrics.Hypervolume)
	}
	if res.Metrics.Spacing != nil {
		fmt.Fprintf(w, "spacing %.4f\n", *res.Metrics.Spacing)
	}
	fmt.Fprintf(w, "total energy %.1f kWh, peak hour %02d:00\n", res.TotalEnergyKWh(), res.PeakHour())
	fmt.Fprintf(w, "elapsed %.2fs over %d evaluations\n", res.ElapsedSeconds, res.Meta.Evaluations)
}
