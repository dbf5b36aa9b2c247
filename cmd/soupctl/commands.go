package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/di"
	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/health"
	"github.com/park285/turtle-soup-judge/internal/logging"
	"github.com/park285/turtle-soup-judge/internal/metrics"
	turtlesoupuc "github.com/park285/turtle-soup-judge/internal/usecase/turtlesoup"
)

const pingTimeout = 5 * time.Second

func newPuzzlesCmd() *cobra.Command {
	var difficulty int
	cmd := &cobra.Command{
		Use:   "puzzles",
		Short: "List the embedded puzzles without answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, err := domain.NewPuzzleLoader()
			if err != nil {
				return fmt.Errorf("load puzzles: %w", err)
			}
			return writePuzzles(cmd.OutOrStdout(), loader.All(), difficulty)
		},
	}
	cmd.Flags().IntVar(&difficulty, "difficulty", 0, "only show puzzles of this difficulty (1-5)")
	return cmd
}

func writePuzzles(out io.Writer, puzzles []domain.Puzzle, difficulty int) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tDIFFICULTY\tHINTS\tTITLE")
	for i := range puzzles {
		view := puzzles[i].Public(i)
		if difficulty > 0 && view.Difficulty != difficulty {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", view.Index, view.ID, view.Difficulty, view.HintCount, view.Title)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write puzzles: %w", err)
	}
	return nil
}

type judgeOptions struct {
	puzzle  int
	text    string
	guess   bool
	offline bool
	asJSON  bool
	verbose bool
}

type judgeOutput struct {
	PuzzleIndex int    `json:"puzzle_index"`
	PuzzleID    string `json:"puzzle_id"`
	Result      string `json:"result"`
	Source      string `json:"source"`
	IsVerdict   bool   `json:"is_verdict"`
}

func newJudgeCmd() *cobra.Command {
	var opts judgeOptions
	cmd := &cobra.Command{
		Use:   "judge",
		Short: "Judge one question or guess",
		Long: `Judge one question or guess against an embedded puzzle.

Online mode builds the same judge the server uses (Gemini settings come from the
environment or .env). Offline mode uses only the rule-based fallback judge.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJudge(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&opts.puzzle, "puzzle", 0, "puzzle index (clamped into range)")
	flags.StringVar(&opts.text, "text", "", "question or guess text")
	flags.BoolVar(&opts.guess, "guess", false, "judge the text as a final guess")
	flags.BoolVar(&opts.offline, "offline", false, "skip the model and use the fallback judge")
	flags.BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log judge internals to stdout")
	return cmd
}

func runJudge(ctx context.Context, out io.Writer, opts judgeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	loader, err := domain.NewPuzzleLoader()
	if err != nil {
		return fmt.Errorf("load puzzles: %w", err)
	}

	index := domain.ClampIndex(opts.puzzle, loader.Count())
	puzzle := loader.GetByIndex(index)

	var result turtlesoupuc.Result
	if opts.offline {
		result = offlineJudgment(puzzle, opts.text, opts.guess)
	} else {
		judge, err := onlineJudge(loader, opts.verbose)
		if err != nil {
			return err
		}
		result = judge.Judge(ctx, puzzle, opts.text, opts.guess)
	}

	output := judgeOutput{
		PuzzleIndex: index,
		Result:      result.Text,
		Source:      string(result.Source),
		IsVerdict:   result.IsVerdict,
	}
	if puzzle != nil {
		output.PuzzleID = puzzle.ID
	}
	return writeJudgment(out, output, opts.asJSON)
}

// offlineJudgment 는 모델 없이 판정한다. 빈 입력과 퍼즐 없음은 온라인 판정과 같은 메시지를 쓴다.
func offlineJudgment(puzzle *domain.Puzzle, text string, isGuess bool) turtlesoupuc.Result {
	switch {
	case puzzle == nil:
		return turtlesoupuc.Result{Text: turtlesoupuc.MessageNoPuzzle, Source: turtlesoupuc.SourceRejected}
	case strings.TrimSpace(text) == "":
		return turtlesoupuc.Result{Text: turtlesoupuc.MessageEmptyInput, Source: turtlesoupuc.SourceRejected}
	}
	verdict := domain.FallbackJudge(puzzle, text, domain.KindOf(isGuess))
	return turtlesoupuc.Result{
		Text:      string(verdict),
		Verdict:   verdict,
		Source:    turtlesoupuc.SourceFallback,
		IsVerdict: true,
	}
}

func onlineJudge(loader *domain.PuzzleLoader, verbose bool) (*turtlesoupuc.Judge, error) {
	cfg := config.Load()
	logger := logging.Discard()
	if verbose {
		var err error
		if logger, err = logging.NewLogger(config.LoggingConfig{Level: slog.LevelDebug.String()}); err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
	}

	metricsStore := metrics.NewStore()
	invoker, err := di.ProvideInvoker(cfg, metricsStore, nil, logger)
	if err != nil {
		return nil, err
	}
	builder, err := di.ProvidePromptBuilder(cfg)
	if err != nil {
		return nil, err
	}
	return di.ProvideJudge(cfg, invoker, loader, builder, di.ProvideGuard(cfg, logger), metricsStore, nil, logger), nil
}

func writeJudgment(out io.Writer, output judgeOutput, asJSON bool) error {
	if asJSON {
		encoded, err := json.Marshal(output)
		if err != nil {
			return fmt.Errorf("encode judgment: %w", err)
		}
		_, err = fmt.Fprintln(out, string(encoded))
		return err
	}
	if !output.IsVerdict {
		_, err := fmt.Fprintf(out, "%s [%s]\n", output.Result, output.PuzzleID)
		return err
	}
	_, err := fmt.Fprintf(out, "%s (source: %s) [%s]\n", output.Result, output.Source, output.PuzzleID)
	return err
}

func newPingCmd() *cobra.Command {
	var (
		addr  string
		ready bool
	)
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check a running judge server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runPing(ctx, cmd.OutOrStdout(), addr, ready)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://127.0.0.1:40627", "judge server base URL")
	cmd.Flags().BoolVar(&ready, "ready", false, "run deep readiness checks")
	return cmd
}

func runPing(ctx context.Context, out io.Writer, addr string, ready bool) error {
	path := "/health"
	if ready {
		path = "/health/ready"
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w", addr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body health.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode health response (status %d): %w", resp.StatusCode, err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "overall\t%s\n", body.Status)
	for _, name := range []string{"app", "gemini", "puzzles", "session_store"} {
		if component, ok := body.Components[name]; ok {
			fmt.Fprintf(tw, "%s\t%s\n", name, component.Status)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write ping: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("server is %s", body.Status)
	}
	return nil
}
