package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/meenmo/g2lib/calibration"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/pipeline"
	"github.com/meenmo/g2lib/recorder"
	"github.com/meenmo/g2lib/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bootstrap, calibrate and price the Bermudan with every configured engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		p, err := pipeline.New(*cfg, market)
		if err != nil {
			return fail(err)
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		bar := calibrationBar(cfg.Calibration.MaxIterations, quiet)
		p.Observer = observe(bar)

		res, runErr := p.Run(ctx)
		if bar != nil {
			bar.Finish()
		}
		if err := record(ctx, res); err != nil {
			logInfo("recorder: %v", err)
		}
		if err := render(cmd, report.Build(res, runErr)); err != nil {
			return err
		}
		return fail(runErr)
	},
}

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Bootstrap the SOFR OIS curve and print its pillars",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline.New(*cfg, market)
		if err != nil {
			return fail(err)
		}
		c, err := p.Curve()
		if err != nil {
			return fail(err)
		}
		if !c.IsMonotone() {
			logInfo("curve discount factors are not monotone")
		}
		fmt.Printf("%-12s %10s %14s %10s\n", "date", "time", "df", "zero")
		for _, pl := range c.Pillars() {
			zero := 0.0
			if pl.Time > 0 {
				zero = c.ZeroRate(pl.Time)
			}
			fmt.Printf("%-12s %10.6f %14.10f %9.5f%%\n", pl.Date.Format("2006-01-02"), pl.Time, pl.DF, 100*zero)
		}
		return nil
	},
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate G2++ to the co-terminal swaptions and print the fit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		p, err := pipeline.New(*cfg, market)
		if err != nil {
			return fail(err)
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		bar := calibrationBar(cfg.Calibration.MaxIterations, quiet)
		p.Observer = observe(bar)

		res := &pipeline.Result{EvaluationDate: market.EvaluationDate}
		c, err := p.Curve()
		if err != nil {
			return fail(err)
		}
		res.Curve = c
		_, cal, calErr := p.Calibrate(ctx, c)
		if bar != nil {
			bar.Finish()
		}
		res.Calibration = cal
		if err := render(cmd, report.Build(res, calErr)); err != nil {
			return err
		}
		return fail(calErr)
	},
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price the Bermudan under fixed G2++ parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline.New(*cfg, market)
		if err != nil {
			return fail(err)
		}
		params := model.ParamsFromVector(cfg.Calibration.Initial[:])
		if s, _ := cmd.Flags().GetString("params"); s != "" {
			if params, err = parseParams(s); err != nil {
				return fail(err)
			}
		}
		c, err := p.Curve()
		if err != nil {
			return fail(err)
		}
		m, err := model.NewG2(c, params)
		if err != nil {
			return fail(err)
		}
		logDebug("pricing with %s", params)

		res := &pipeline.Result{EvaluationDate: market.EvaluationDate, Curve: c}
		b, prices, priceErr := p.Price(context.Background(), m, c)
		res.Bermudan, res.Prices = b, prices
		if err := render(cmd, report.Build(res, priceErr)); err != nil {
			return err
		}
		return fail(priceErr)
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, calibrateCmd, priceCmd} {
		c.Flags().String("format", "text", "output format (text, json)")
	}
	runCmd.Flags().Bool("quiet", false, "hide the calibration progress bar")
	calibrateCmd.Flags().Bool("quiet", false, "hide the calibration progress bar")
	priceCmd.Flags().String("params", "", "a,sigma,b,eta,rho (default: calibration.initial)")
}

func render(cmd *cobra.Command, d *report.Document) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return report.WriteJSON(os.Stdout, d)
	case "text", "":
		return report.WriteText(os.Stdout, d)
	}
	return fmt.Errorf("unknown format %q", format)
}

func parseParams(s string) (model.Params, error) {
	parts := strings.Split(s, ",")
	if len(parts) != model.NumParams {
		return model.Params{}, fmt.Errorf("params: want %d values, got %d", model.NumParams, len(parts))
	}
	v := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.Params{}, fmt.Errorf("params: %w", err)
		}
		v[i] = f
	}
	out := model.ParamsFromVector(v)
	return out, out.Validate()
}

func calibrationBar(n int, quiet bool) *progressbar.ProgressBar {
	if quiet {
		return nil
	}
	return progressbar.NewOptions(
		n,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("calibrating"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func observe(bar *progressbar.ProgressBar) calibration.Observer {
	return func(it calibration.Iteration) {
		switch {
		case it.Infeasible:
			logDebug("iteration %d rejected: trial outside the model domain", it.N)
		case it.Err != nil:
			logDebug("iteration %d rejected: %v", it.N, it.Err)
		default:
			logDebug("iteration %d cost %.6g accepted=%t %s", it.N, it.Cost, it.Accepted, it.Params)
		}
		if bar != nil {
			bar.Describe(fmt.Sprintf("calibrating (cost %.3g)", it.Cost))
			_ = bar.Add(1)
		}
	}
}

func record(ctx context.Context, res *pipeline.Result) error {
	if res == nil || res.Calibration == nil {
		return nil
	}
	rec, err := recorder.New(cfg.Recorder)
	if err != nil {
		return err
	}
	defer rec.Close()
	id, err := rec.RecordRun(ctx, res.Record(calibration.Method(cfg.Calibration.Method)))
	if err != nil {
		return err
	}
	if id > 0 {
		logInfo("run recorded as #%d", id)
	}
	return nil
}
