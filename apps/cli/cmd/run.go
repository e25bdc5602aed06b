package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hbruhn/devprobe/packages/batch"
	"github.com/hbruhn/devprobe/packages/core/config"
	"github.com/hbruhn/devprobe/packages/execlog"
	"github.com/hbruhn/devprobe/packages/history"
	"github.com/hbruhn/devprobe/packages/http"
	"github.com/hbruhn/devprobe/packages/output"
	"github.com/hbruhn/devprobe/packages/preset"
)

var runCmd = &cobra.Command{
	Use:   "run [preset ...]",
	Short: "Run presets against the device",
	Long: `Run one or more presets against the configured device. Steps run
strictly one at a time; a failing step is recorded and the run
continues with the next one.

Examples:
  devprobe run GetContacts_path --device 10.27.35.4 --user admin
  devprobe run --all
  devprobe run --all --mode unhappy
  devprobe run --all --search SIPAccount --watch`,
	RunE: runCommand,
}

var (
	configFlag   string
	deviceFlag   string
	userFlag     string
	passwordFlag string
	timeoutFlag  int
	tlsFlag      bool

	allFlag    bool
	modeFlag   string
	searchFlag string
	watchFlag  bool

	outputFlag     string
	outputFileFlag string
	verboseFlag    bool
	noColorFlag    bool
	quietFlag      bool

	rateFlag      float64
	noHistoryFlag bool
)

func init() {
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("DEVPROBE_CONFIG", ""), "Path to config file (env: DEVPROBE_CONFIG)")
	runCmd.Flags().StringVar(&deviceFlag, "device", getEnvString("DEVPROBE_DEVICE", ""), "Device IP or host[:port] (env: DEVPROBE_DEVICE)")
	runCmd.Flags().StringVarP(&userFlag, "user", "u", getEnvString("DEVPROBE_USER", ""), "Digest auth username (env: DEVPROBE_USER)")
	runCmd.Flags().StringVar(&passwordFlag, "password", getEnvString("DEVPROBE_PASSWORD", ""), "Digest auth password (env: DEVPROBE_PASSWORD)")
	runCmd.Flags().IntVar(&timeoutFlag, "timeout", getEnvInt("DEVPROBE_TIMEOUT", 0), "Per-request timeout in milliseconds (env: DEVPROBE_TIMEOUT)")
	runCmd.Flags().BoolVar(&tlsFlag, "tls", getEnvBool("DEVPROBE_TLS", false), "Use https (env: DEVPROBE_TLS)")

	runCmd.Flags().BoolVarP(&allFlag, "all", "a", false, "Run every preset matching --mode and --search")
	runCmd.Flags().StringVarP(&modeFlag, "mode", "m", "happy", "Preset mode for --all: happy, unhappy")
	runCmd.Flags().StringVarP(&searchFlag, "search", "s", "", "Name substring filter for --all")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-run when the presets file changes")

	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("DEVPROBE_OUTPUT", "console"), "Output format: console, json (env: DEVPROBE_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("DEVPROBE_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: DEVPROBE_OUTPUT_FILE)")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show URLs and response bodies")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("DEVPROBE_NO_COLOR", false), "Disable colored output (env: DEVPROBE_NO_COLOR)")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("DEVPROBE_QUIET", false), "Suppress all output except errors (env: DEVPROBE_QUIET)")

	runCmd.Flags().Float64VarP(&rateFlag, "rate", "r", 0, "Pace batch steps at n per second (0 = unpaced)")
	runCmd.Flags().BoolVar(&noHistoryFlag, "no-history", false, "Skip recording the run in the history database")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// Formatter receives steps as they complete.
type Formatter interface {
	FormatStep(step *batch.Step)
}

// The active run's token. Watch mode starts a fresh token per re-run, so the
// signal handler always cancels the run currently in progress.
var (
	runTokenMu sync.Mutex
	runToken   *batch.Token
)

func newRunToken() *batch.Token {
	runTokenMu.Lock()
	defer runTokenMu.Unlock()
	runToken = batch.NewToken()
	return runToken
}

func cancelRunToken() {
	runTokenMu.Lock()
	defer runTokenMu.Unlock()
	if runToken != nil {
		runToken.Cancel()
	}
}

// stopOnSignal makes the first signal cooperative: it cancels the run token
// and stops the watch loop, but never the in-flight call, which runs to
// completion before the token takes effect. A second signal invokes force.
func stopOnSignal(sigCh <-chan os.Signal, stopWatch context.CancelFunc, force func()) {
	<-sigCh
	fmt.Fprintln(os.Stderr, "\nStopping after the current step... (press Ctrl+C again to force quit)")
	cancelRunToken()
	stopWatch()
	<-sigCh
	fmt.Fprintln(os.Stderr, "\nForce quit")
	force()
}

func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}

	overrides := &config.Settings{
		DeviceIP:  deviceFlag,
		Username:  userFlag,
		Password:  passwordFlag,
		TimeoutMS: timeoutFlag,
		StepRate:  rateFlag,
	}
	if tlsFlag {
		t := true
		overrides.UseTLS = &t
	}
	if noColorFlag {
		nc := true
		overrides.NoColor = &nc
	}
	return settings.Merge(overrides), nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !allFlag {
		return fmt.Errorf("name at least one preset or pass --all")
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if err := settings.ValidateDevice(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	store := preset.NewStore(settings.PresetsFile, settings.ConfigsDir)
	if err := store.Load(); err != nil {
		return err
	}

	var outWriter *os.File
	if outputFileFlag != "" {
		outWriter, err = os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer outWriter.Close()
	}

	token := newRunToken()
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go stopOnSignal(sigCh, stopWatch, func() { os.Exit(ExitCancelled) })

	// The runner gets a background context on purpose: cancellation is
	// cooperative through the token, and the watch context stopping must not
	// abort a call already in flight.
	summary, err := runOnce(context.Background(), store, settings, args, token, outWriter)
	if err != nil {
		return err
	}

	if !watchFlag {
		os.Exit(exitCode(summary))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", store.Path())
	err = store.Watch(watchCtx,
		func() {
			fmt.Fprintf(cmd.OutOrStdout(), "\nPresets changed, re-running...\n\n")
			if _, rerr := runOnce(context.Background(), store, settings, args, newRunToken(), outWriter); rerr != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", rerr)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", store.Path())
		},
		func(werr error) {
			fmt.Fprintf(os.Stderr, "watch: %v\n", werr)
		})
	if err != nil && watchCtx.Err() == nil {
		return err
	}
	return nil
}

// runOnce executes the selected presets and writes all configured output.
func runOnce(ctx context.Context, store *preset.Store, settings *config.Settings, args []string, token *batch.Token, outWriter *os.File) (*batch.Summary, error) {
	selected, err := selectPresets(store, args)
	if err != nil {
		return nil, err
	}

	formatter := newFormatter(outWriter)

	runID := uuid.New().String()
	start := time.Now()

	logName := "batch"
	kind := "batch"
	if len(selected) == 1 {
		logName = selected[0].Name
		kind = "single"
	}

	sink, err := execlog.New(settings.LogsDir, logName, start, len(selected) > 1)
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	opts := []batch.RunnerOption{
		batch.WithRunID(runID),
		batch.WithRecorder(sink),
		batch.WithStepRate(settings.StepRate),
	}
	if !quietFlag {
		opts = append(opts, batch.WithObserver(formatter.FormatStep))
	}

	var hist *history.Store
	if !noHistoryFlag {
		hist, err = history.Open(settings.HistoryDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		} else {
			defer hist.Close()
			if err := hist.BeginRun(runID, kind, start); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			} else {
				opts = append(opts, batch.WithRecorder(hist.NewRunRecorder(runID)))
			}
		}
	}

	exec := http.NewExecutor(http.WithTimeout(time.Duration(settings.TimeoutMS) * time.Millisecond))
	runner := batch.NewRunner(exec, store, settings, opts...)

	summary := runner.Run(ctx, selected, token)

	if hist != nil {
		if err := hist.FinishRun(runID, string(summary.State), summary.OK, summary.Errors, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	if !quietFlag {
		finish(formatter, summary)
		if cf, ok := formatter.(*output.ConsoleFormatter); ok && summary.State != batch.Failed {
			cf.FormatHeader("Log:", sink.Path())
		}
	}
	return summary, nil
}

func newFormatter(outWriter *os.File) Formatter {
	switch strings.ToLower(outputFlag) {
	case "json":
		opts := []output.JSONOption{}
		if outWriter != nil {
			opts = append(opts, output.JSONWithWriter(outWriter))
		}
		return output.NewJSONFormatter(opts...)
	default: // "console"
		opts := []output.ConsoleOption{
			output.WithVerbose(verboseFlag),
			output.WithNoColor(noColorFlag || quietFlag),
		}
		if outWriter != nil {
			opts = append(opts, output.WithWriter(outWriter))
		}
		return output.NewConsoleFormatter(opts...)
	}
}

func finish(formatter Formatter, summary *batch.Summary) {
	switch f := formatter.(type) {
	case *output.JSONFormatter:
		if err := f.Flush(summary); err != nil {
			fmt.Fprintf(os.Stderr, "error writing output: %v\n", err)
		}
	case *output.ConsoleFormatter:
		f.FormatSummary(summary)
	}
}

func selectPresets(store *preset.Store, args []string) ([]preset.Preset, error) {
	if allFlag {
		mode := preset.Mode(strings.ToLower(modeFlag))
		if mode != preset.Happy && mode != preset.Unhappy {
			return nil, fmt.Errorf("invalid mode %q: use happy or unhappy", modeFlag)
		}
		selected := store.Filter(mode, searchFlag)
		if len(selected) == 0 {
			return nil, fmt.Errorf("no %s presets match %q", mode, searchFlag)
		}
		return selected, nil
	}

	var selected []preset.Preset
	for _, name := range args {
		p, ok := store.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (see: devprobe list)", name)
		}
		selected = append(selected, p)
	}
	return selected, nil
}

func exitCode(summary *batch.Summary) int {
	switch summary.State {
	case batch.Cancelled:
		return ExitCancelled
	case batch.Failed:
		return ExitPresetError
	}
	if summary.Errors > 0 {
		return ExitStepFailure
	}
	return ExitSuccess
}
