package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/triumf-dragon/coincore/internal/dispatch"
	"github.com/triumf-dragon/coincore/internal/dlog"
	"github.com/triumf-dragon/coincore/internal/fixture"
	"github.com/triumf-dragon/coincore/internal/frame"
	"github.com/triumf-dragon/coincore/internal/rundb"
)

var (
	fixturePath   string
	singlesMode   bool
	delayedPeriod time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a YAML fixture file through the coincidence-matching core",
	RunE:  runE,
}

func init() {
	runCmd.Flags().StringVar(&fixturePath, "fixture", "", "path to a YAML frame fixture (required)")
	runCmd.Flags().BoolVar(&singlesMode, "singles", false, "start in singles-only mode (bypass coincidence matching)")
	runCmd.Flags().DurationVar(&delayedPeriod, "log-aggregation-period", 5*time.Second, "delayed-message aggregation window")
	_ = runCmd.MarkFlagRequired("fixture")
}

func runE(cmd *cobra.Command, args []string) error {
	logger := dlog.New(cmd.OutOrStderr(), delayedPeriod)
	defer logger.FlushDelayed()

	db := loadDatabase(logger)

	headBanks := rundb.LoadHeadBankNames(db, logger)
	tailBanks := rundb.LoadTailBankNames(db, logger)
	headScaler := rundb.LoadScalerBankName(db, logger, rundb.KeyHeadScaler, rundb.DefaultHeadScaler)
	tailScaler := rundb.LoadScalerBankName(db, logger, rundb.KeyTailScaler, rundb.DefaultTailScaler)
	coinc := rundb.LoadCoincidenceVariables(db)

	var singles, coincPairs, scalers int
	sinks := dispatch.Sinks{
		OnSingle: func(e dispatch.DecodedEvent) {
			singles++
			logger.Info("single", "kind", e.Kind.String(), "trig_count", e.Trigger.TrigCount)
		},
		OnCoincidence: func(head, tail dispatch.DecodedEvent, deltaUs float64) {
			coincPairs++
			logger.Info("coincidence", "head_kind", head.Kind.String(), "tail_kind", tail.Kind.String(), "delta_us", deltaUs)
		},
		OnScaler: func(e dispatch.DecodedEvent) {
			scalers++
		},
		OnRunStart: func(frame.RawFrame) { logger.Info("begin of run") },
		OnRunStop:  func(frame.RawFrame) { logger.Info("end of run") },
	}

	d := dispatch.New(logger, dispatch.DefaultRouter(), headBanks, tailBanks, headScaler, tailScaler, coinc, sinks)
	if singlesMode {
		if err := d.SetSinglesMode(0); err != nil {
			return fmt.Errorf("entering singles mode: %w", err)
		}
	}

	stream, err := fixture.Load(fixturePath)
	if err != nil {
		return err
	}

	for _, raw := range stream.RawFrames() {
		if err := d.Dispatch(raw); err != nil {
			return fmt.Errorf("dispatching frame (event_id=%d serial=%d): %w", raw.EventID, raw.Serial, err)
		}
	}
	if err := d.FlushAtEndOfRun(); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}

	diag := d.Diagnostics()
	logger.Info("run complete",
		"singles_emitted", singles, "coincidence_pairs_emitted", coincPairs, "scaler_events", scalers,
		"queue_pushed", diag.Pushed, "queue_retired", diag.Retired, "queue_singles", diag.Singles,
		"queue_coincidence_pairs", diag.CoincidencePairs, "queue_dropped", diag.Dropped)
	return nil
}

func loadDatabase(logger *dlog.Logger) rundb.Database {
	if configPath == "" {
		return rundb.MapDatabase{}
	}
	db, ok := rundb.LoadViperDatabaseFile(configPath)
	if !ok {
		logger.Warn("no run configuration file found, using compiled-in defaults", "path", configPath)
		return rundb.MapDatabase{}
	}
	return db
}
