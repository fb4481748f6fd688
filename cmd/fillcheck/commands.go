package main

import (
	"context"
	"fmt"
	"path/filepath"

	service "github.com/okian/fillcheck/internal/app"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/domain/selection"
	"github.com/okian/fillcheck/internal/orchestrator"
	"github.com/okian/fillcheck/internal/phase"
	"github.com/okian/fillcheck/internal/sweep"
	"github.com/okian/fillcheck/internal/synth"
	"github.com/okian/fillcheck/pkg/logger"
	"github.com/spf13/cobra"
)

func (c *cli) validateCmd() *cobra.Command {
	var in orchestrator.Inputs
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run train, then validate and forward, and print the verdict",
		Long: `Run the phases strictly in order. Candidates adopted in train must not be
rejected in validate and must keep at least 70% of their train average net
in forward. Exits non-zero when no candidate survives.

Examples:
  fillcheck validate --train a.jsonl,b.jsonl --forward c.jsonl
  fillcheck validate --train a.jsonl --validate b.jsonl --forward c.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				v, err := svc.Validate(ctx, in)
				if v != nil {
					if perr := c.printJSON(v); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringSliceVar(&in.Train, "train", nil, "Train window files (required)")
	cmd.Flags().StringSliceVar(&in.Validate, "validate", nil, "Validate window files")
	cmd.Flags().StringSliceVar(&in.Forward, "forward", nil, "Forward window files")
	_ = cmd.MarkFlagRequired("train")
	return cmd
}

type phaseOutput struct {
	Summary    phase.Summary         `json:"summary"`
	Selection  selection.Stats       `json:"selection"`
	Candidates []model.CandidateStat `json:"candidates"`
	Dir        string                `json:"dir,omitempty"`
}

func (c *cli) phaseCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "phase [files...]",
		Short: "Label and judge one phase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			return c.withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				res, err := svc.RunPhase(ctx, name, files)
				if err != nil {
					return err
				}
				return c.printJSON(phaseOutput{
					Summary:    res.Summary,
					Selection:  res.Selection,
					Candidates: res.Judgement.Candidates,
					Dir:        res.Dir,
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", phase.Train, "Phase name: train, validate, forward")
	return cmd
}

func (c *cli) sweepCmd() *cobra.Command {
	var (
		files []string
		grid  sweep.Grid
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Grid-search selection filters over train files and print the ranking",
		Long: `Each combination of --min-score, --max-spread and --cooldown is labeled and
judged. Omitted dimensions keep the configured value.

Example:
  fillcheck sweep --train a.jsonl,b.jsonl --min-score 0,1 --max-spread 0,5 --cooldown 0,1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				rep, err := svc.Sweep(ctx, files, grid)
				if err != nil {
					return err
				}
				return c.printJSON(rep)
			})
		},
	}
	cmd.Flags().StringSliceVar(&files, "train", nil, "Train window files (required)")
	cmd.Flags().Float64SliceVar(&grid.MinScores, "min-score", nil, "Minimum score values")
	cmd.Flags().Float64SliceVar(&grid.MaxSpreadBps, "max-spread", nil, "Maximum spread values in bps")
	cmd.Flags().Int64SliceVar(&grid.CooldownMs, "cooldown", nil, "Per-candidate cooldown values in ms")
	_ = cmd.MarkFlagRequired("train")
	return cmd
}

func (c *cli) shadowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shadow intents.jsonl",
		Short: "Reconcile shadow-live open/close intents and print the P&L summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				rep, err := svc.Shadow(ctx, args[0])
				if err != nil {
					return err
				}
				return c.printJSON(rep)
			})
		},
	}
}

func (c *cli) genCmd() *cobra.Command {
	var (
		out   string
		name  string
		cfg   synth.Config
		group synth.Group
		side  string
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Write a deterministic synthetic JSONL window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := model.ParseSide(side)
			if err != nil {
				return err
			}
			group.Side = s
			cfg.Groups = []synth.Group{group}
			path := filepath.Join(out, name+".jsonl")
			if err := synth.WriteFile(path, cfg); err != nil {
				return err
			}
			c.log.Info(cmd.Context(), "synthetic window written",
				logger.String("path", path),
				logger.Int("events", cfg.Events()),
			)
			_, err = fmt.Fprintln(c.stdout, path)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&out, "out", ".", "Output directory")
	f.StringVar(&name, "name", "window", "File name without extension")
	f.Int64Var(&cfg.Seed, "seed", 1, "Random seed")
	f.Float64Var(&cfg.Volatility, "volatility", 0, "Mid random-walk step standard deviation")
	f.Int64Var(&cfg.TradeEveryMs, "trade-every", 0, "Trade interval in ms; 0 disables trades")
	f.Float64Var(&cfg.TradeUSD, "trade-usd", 0, "Notional of each generated trade")
	f.StringVar(&group.Type, "type", "BREAKOUT", "Event type")
	f.StringVar(&side, "side", string(model.SideLong), "Event side: LONG or SHORT")
	f.IntVar(&group.Count, "count", 25, "Number of events")
	f.Float64Var(&group.Score, "score", 1, "Event score")
	f.Float64Var(&group.SpreadBps, "spread", 0, "Event spread in bps")
	f.Float64Var(&group.Move30, "move30", 1, "Mean side-signed 30s move in USD")
	f.Float64Var(&group.Jitter, "jitter", 0, "Move30 standard deviation")
	return cmd
}
