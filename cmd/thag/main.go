// Package main implements the thag CLI: a thin cobra front-end over the
// script-to-binary pipeline in internal/pipeline. Everything this file does
// is out of the Core's scope by design - flag parsing, source loading,
// console logging - it only ever produces a model.Source and a model.Flags
// value and hands them to the Driver.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"thag/internal/config"
	"thag/internal/logging"
	"thag/internal/model"
	"thag/internal/orchestrator"
	"thag/internal/pipeline"
)

var (
	verbose    bool
	configPath string
	logger     *zap.Logger

	exprFlag    string
	snippetFlag string
	loopFlag    bool
	loopBegin   string
	loopEnd     string
	loopToml    string
	stdinFlag   bool
	replFlag    bool
	editFlag    bool

	generateFlag bool
	buildFlag    bool
	runFlag      bool
	forceFlag    bool
	noRunFlag    bool
	multimain    bool
	executable   string
	expandFlag   bool
	quiet        int
	timingsFlag  bool
	unquoteFlag  bool
	inferLevel   string
	cargoSub     string
	cleanTarget  string
)

var rootCmd = &cobra.Command{
	Use:   "thag [script.rs] [-- args...]",
	Short: "thag turns Rust source into a compiled, executed binary",
	Long: `thag takes a Rust program, snippet, expression, or line-filter loop body
and compiles it to a cached executable without you maintaining a Cargo
project: it classifies the input, infers its dependencies, synthesises a
Cargo manifest, and delegates the actual build to cargo.`,
	Args: cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		cacheRoot := filepath.Join(os.TempDir(), "thag_rs_bins")
		logCfg := config.Default().Logging
		if cfg, err := config.Load(configPath); err == nil {
			logCfg = cfg.Logging
		}
		if err := logging.Configure(cacheRoot, logCfg.DebugMode, logCfg.Level, logCfg.Categories, logCfg.JSONFormat); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runScript,
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cached build artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseCleanTarget(cleanTarget)
		if err != nil {
			return err
		}
		if err := orchestrator.Clean(target); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
		fmt.Fprintf(os.Stdout, "cleaned %s\n", cleanTarget)
		return nil
	},
}

func parseCleanTarget(v string) (orchestrator.CleanTarget, error) {
	switch v {
	case "", "bins":
		return orchestrator.CleanBins, nil
	case "target":
		return orchestrator.CleanTargetDir, nil
	case "all":
		return orchestrator.CleanAll, nil
	default:
		return 0, fmt.Errorf("unknown clean target %q (want bins, target, or all)", v)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a thag config YAML file")

	rootCmd.Flags().StringVarP(&exprFlag, "expr", "x", "", "evaluate a single Rust expression")
	rootCmd.Flags().StringVar(&snippetFlag, "snippet", "", "run a Rust snippet (statements, optional tail expression)")
	rootCmd.Flags().BoolVarP(&loopFlag, "loop", "l", false, "treat the snippet/stdin as a line-filter loop body")
	rootCmd.Flags().StringVar(&loopBegin, "begin", "", "code to run once before the loop (loop mode)")
	rootCmd.Flags().StringVar(&loopEnd, "end", "", "code to run once after the loop (loop mode)")
	rootCmd.Flags().StringVar(&loopToml, "toml", "", "embedded manifest fragment for loop mode")
	rootCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "read the program/snippet from stdin")
	rootCmd.Flags().BoolVar(&replFlag, "repl", false, "start an interactive REPL (front-end, not part of this build)")
	rootCmd.Flags().BoolVar(&editFlag, "edit", false, "open the script in an editor first (front-end, not part of this build)")

	rootCmd.Flags().BoolVarP(&generateFlag, "generate", "g", false, "generate the Cargo project only, skip build and run")
	rootCmd.Flags().BoolVarP(&buildFlag, "build", "b", false, "build even if a cached executable looks fresh")
	rootCmd.Flags().BoolVarP(&runFlag, "run", "r", true, "run the built executable")
	rootCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "ignore freshness, always regenerate and rebuild")
	rootCmd.Flags().BoolVar(&noRunFlag, "norun", false, "build only, never execute")
	rootCmd.Flags().BoolVarP(&multimain, "multimain", "m", false, "allow more than one top-level fn main")
	rootCmd.Flags().StringVarP(&executable, "executable", "d", "", "release-build and copy the binary into this directory instead of running it")
	rootCmd.Flags().BoolVar(&expandFlag, "expand", false, "print the wrapped/generated source and stop")
	rootCmd.Flags().CountVarP(&quiet, "quiet", "q", "given twice, suppress thag warnings (cargo output is not suppressed)")
	rootCmd.Flags().BoolVarP(&timingsFlag, "timings", "t", false, "record and print per-stage durations")
	rootCmd.Flags().BoolVarP(&unquoteFlag, "unquote", "u", false, "print snippet results with Display instead of Debug")
	rootCmd.Flags().StringVar(&inferLevel, "infer", "", "override the configured inference level (none, minimal, config, maximal)")
	rootCmd.Flags().StringVar(&cargoSub, "cargo", "", "run this cargo sub-command against the generated project instead of build/run")

	cleanCmd.Flags().StringVar(&cleanTarget, "target", "bins", "what to remove: bins, target, or all")
	rootCmd.AddCommand(cleanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runScript(cmd *cobra.Command, args []string) error {
	if replFlag || editFlag {
		return fmt.Errorf("--repl/--edit are front-end features outside this build's scope")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if inferLevel != "" {
		cfg.Inference.Level = config.InferenceLevel(inferLevel)
	}
	if unquoteFlag {
		cfg.Unquote = true
	}

	src, scriptArgs, err := loadSource(args)
	if err != nil {
		return err
	}

	flags := model.Flags{
		Generate:        generateFlag,
		Build:           buildFlag,
		Run:             runFlag && (!generateFlag || cmd.Flags().Changed("run")),
		Force:           forceFlag,
		NoRun:           noRunFlag,
		Multimain:       multimain,
		Executable:      executable,
		Expand:          expandFlag,
		Quiet:           quiet,
		Timings:         timingsFlag,
		CargoSubcommand: cargoSub,
		Args:            scriptArgs,
	}
	state := model.NewBuildState(src, flags)

	driver := pipeline.New(cfg)
	outcome, err := driver.Run(context.Background(), state)
	if err != nil {
		return err
	}

	if expandFlag {
		fmt.Fprintln(os.Stdout, state.WrappedSource)
		return nil
	}
	for _, w := range outcome.Warnings {
		if quiet < 2 {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}
	if timingsFlag {
		for stage, ns := range state.StageTimings {
			fmt.Fprintf(os.Stderr, "%-16s %v\n", stage, nsToDuration(ns))
		}
	}
	if outcome.ExitCode != 0 {
		os.Exit(outcome.ExitCode)
	}
	return nil
}

// loadSource turns the CLI's flags into exactly one model.Source, per the
// mode-selection flags the external interface promises: program (a file
// path), snippet, expression, loop, or stdin.
func loadSource(args []string) (model.Source, []string, error) {
	scriptArgs := args
	var filePath string
	if len(args) > 0 && exprFlag == "" && snippetFlag == "" && !stdinFlag {
		filePath = args[0]
		scriptArgs = args[1:]
	}

	switch {
	case exprFlag != "":
		return model.Source{Text: exprFlag, Mode: model.ModeExpression, Name: "expr", Origin: model.OriginREPLBuffer}, scriptArgs, nil

	case loopFlag:
		var body string
		if snippetFlag != "" {
			body = snippetFlag
		} else {
			text, err := readStdin()
			if err != nil {
				return model.Source{}, nil, err
			}
			body = text
		}
		return model.Source{
			Text: body, Mode: model.ModeLoopBody, Name: "loop", Origin: model.OriginStdin,
			LoopBegin: loopBegin, LoopEnd: loopEnd, LoopToml: loopToml,
		}, scriptArgs, nil

	case snippetFlag != "":
		return model.Source{Text: snippetFlag, Mode: model.ModeSnippet, Name: "snippet", Origin: model.OriginREPLBuffer}, scriptArgs, nil

	case stdinFlag || filePath == "":
		text, err := readStdin()
		if err != nil {
			return model.Source{}, nil, err
		}
		return model.Source{Text: text, Mode: model.ModeProgram, Name: "stdin", Origin: model.OriginStdin}, scriptArgs, nil

	default:
		data, err := os.ReadFile(filePath)
		if err != nil {
			return model.Source{}, nil, fmt.Errorf("read %s: %w", filePath, err)
		}
		stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		return model.Source{Text: string(data), Mode: model.ModeProgram, Name: stem, Origin: model.OriginFile}, scriptArgs, nil
	}
}

func readStdin() (string, error) {
	r := bufio.NewReader(os.Stdin)
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func nsToDuration(ns int64) string {
	d := float64(ns) / 1e6
	return fmt.Sprintf("%.2fms", d)
}
