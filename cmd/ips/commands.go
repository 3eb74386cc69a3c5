package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/irfndi/celebrum-ips/internal/models"
	"github.com/irfndi/celebrum-ips/internal/services"
)

// maxPostLine bounds one JSON line of input.
const maxPostLine = 1 << 20

// withApp wires an app for the duration of one command.
func withApp(configPath *string, fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), *configPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				a.logger.WithError(err).Warn("Failed to release resources")
			}
		}()
		return fn(cmd.Context(), a, cmd, args)
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the record tables and indexes",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := a.migrate(ctx); err != nil {
				return err
			}
			a.logger.WithField("driver", a.cfg.Database.Driver).Info("Schema is up to date")
			return printJSON(cmd.OutOrStdout(), map[string]string{"status": "ok"})
		}),
	}
}

type failureView struct {
	EventID string `json:"event_id"`
	Error   string `json:"error"`
}

type scoreSummary struct {
	Processed int                     `json:"processed"`
	Filtered  int                     `json:"filtered"`
	Failures  []failureView           `json:"failures"`
	Records   []models.IPSEventRecord `json:"records"`
}

func newScoreCmd(configPath *string) *cobra.Command {
	var postsFile, realityFile string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score posts read as JSON lines",
		Long: `Score reads one RawPost JSON object per line and scores each one over
every window.

Examples:
  ips score --file posts.jsonl
  cat posts.jsonl | ips score --reality reality.json`,
		Args: cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if postsFile != "" && postsFile != "-" {
				f, err := os.Open(postsFile)
				if err != nil {
					return fmt.Errorf("failed to open posts: %w", err)
				}
				defer f.Close()
				in = f
			}

			posts, err := readPosts(in)
			if err != nil {
				return err
			}

			var reality map[string]*models.RealityContext
			if realityFile != "" {
				if reality, err = readReality(realityFile); err != nil {
					return err
				}
			}

			result := a.engine.ProcessEvents(ctx, posts, reality)
			if err := printJSON(cmd.OutOrStdout(), summarize(result)); err != nil {
				return err
			}
			return result.Err()
		}),
	}

	cmd.Flags().StringVar(&postsFile, "file", "-", "JSON lines file of posts, - for stdin")
	cmd.Flags().StringVar(&realityFile, "reality", "", "JSON object mapping event id to reality context")
	return cmd
}

func summarize(result *services.BatchResult) scoreSummary {
	summary := scoreSummary{
		Processed: result.Processed,
		Filtered:  result.Filtered,
		Failures:  make([]failureView, 0, len(result.Failures)),
		Records:   result.Records,
	}
	for _, f := range result.Failures {
		summary.Failures = append(summary.Failures, failureView{EventID: f.EventID, Error: f.Err.Error()})
	}
	return summary
}

// readPosts decodes one post per non-blank line.
func readPosts(r io.Reader) ([]models.RawPost, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxPostLine)

	var posts []models.RawPost
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var post models.RawPost
		if err := json.Unmarshal([]byte(text), &post); err != nil {
			return nil, fmt.Errorf("invalid post on line %d: %w", line, err)
		}
		posts = append(posts, post)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

func readReality(path string) (map[string]*models.RealityContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reality file: %w", err)
	}
	var reality map[string]*models.RealityContext
	if err := json.Unmarshal(data, &reality); err != nil {
		return nil, fmt.Errorf("invalid reality file: %w", err)
	}
	return reality, nil
}

// timelineFlags are shared by timeline and timeline-stats.
type timelineFlags struct {
	actor   string
	asset   string
	window  string
	verdict string
	minIPS  float64
	from    int64
	to      int64
	limit   int
}

func (f *timelineFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.actor, "actor", "", "Actor id")
	cmd.Flags().StringVar(&f.asset, "asset", "", "Asset ticker, case-insensitive")
	cmd.Flags().StringVar(&f.window, "window", "", "Window: 1h, 4h or 24h")
	cmd.Flags().StringVar(&f.verdict, "verdict", "", "Verdict: INFORMED, MIXED, NOISE or INSUFFICIENT_DATA")
	cmd.Flags().Float64Var(&f.minIPS, "min-ips", 0, "Minimum IPS, inclusive")
	cmd.Flags().Int64Var(&f.from, "from", 0, "Earliest event time, epoch ms")
	cmd.Flags().Int64Var(&f.to, "to", 0, "Latest event time, epoch ms")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum records (default and cap come from config)")
}

func (f *timelineFlags) filter(cmd *cobra.Command) (models.TimelineFilter, error) {
	filter := models.TimelineFilter{
		ActorID: f.actor,
		Asset:   f.asset,
		From:    f.from,
		To:      f.to,
		Limit:   f.limit,
	}

	if f.window != "" {
		w, err := models.ParseWindow(f.window)
		if err != nil {
			return filter, err
		}
		filter.Window = w
	}

	if f.verdict != "" {
		v := models.Verdict(strings.ToUpper(f.verdict))
		switch v {
		case models.VerdictInformed, models.VerdictMixed, models.VerdictNoise, models.VerdictInsufficientData:
			filter.Verdict = v
		default:
			return filter, fmt.Errorf("unknown verdict %q", f.verdict)
		}
	}

	if cmd.Flags().Changed("min-ips") {
		minIPS := f.minIPS
		filter.MinIPS = &minIPS
	}

	if filter.From > 0 && filter.To > 0 && filter.From > filter.To {
		return filter, fmt.Errorf("--from (%d) is after --to (%d)", filter.From, filter.To)
	}
	return filter, nil
}

func newTimelineCmd(configPath *string) *cobra.Command {
	var flags timelineFlags
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "List scored records, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter(cmd)
			if err != nil {
				return err
			}
			records, err := a.stats.GetTimeline(ctx, filter)
			if err != nil {
				return err
			}
			if records == nil {
				records = []models.IPSEventRecord{}
			}
			return printJSON(cmd.OutOrStdout(), records)
		}),
	}
	flags.bind(cmd)
	return cmd
}

func newTimelineStatsCmd(configPath *string) *cobra.Command {
	var flags timelineFlags
	cmd := &cobra.Command{
		Use:   "timeline-stats",
		Short: "Summarise the IPS distribution of a timeline query",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter(cmd)
			if err != nil {
				return err
			}
			stats, err := a.stats.GetTimelineStats(ctx, filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		}),
	}
	flags.bind(cmd)
	return cmd
}

func newActorStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "actor-stats <actorId>",
		Short: "Show an actor's aggregate, served from cache while fresh",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			stats, err := a.stats.GetActorStats(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		}),
	}
}

func newAssetStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "asset-stats <asset>",
		Short: "Show an asset's aggregate and top actors",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			stats, err := a.stats.GetAssetStats(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		}),
	}
}

func newRecalcCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <actorId>",
		Short: "Recompute an actor's aggregate, bypassing the cache",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			stats, err := a.stats.RecalculateActorStats(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		}),
	}
}

type reevaluateSummary struct {
	Due      int                     `json:"due"`
	Skipped  int                     `json:"skipped"`
	Failures []failureView           `json:"failures"`
	Records  []models.IPSEventRecord `json:"records"`
}

func newReevaluateCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "reevaluate",
		Short: "Rescore records whose window has closed since they were scored",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			result, runErr := a.engine.ReevaluateOpenWindows(ctx, limit)
			if result == nil {
				return runErr
			}
			summary := reevaluateSummary{
				Due:      result.Due,
				Skipped:  result.Skipped,
				Failures: make([]failureView, 0, len(result.Failures)),
				Records:  result.Records,
			}
			for _, f := range result.Failures {
				summary.Failures = append(summary.Failures, failureView{EventID: f.EventID, Error: f.Err.Error()})
			}
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			return runErr
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", services.DefaultReevaluateLimit, "Maximum records to rescore in this pass")
	return cmd
}

func newEvaluationStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluation-stats",
		Short: "Count stored windows that were open or closed when scored",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			stats, err := a.stats.GetWindowStats(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		}),
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
