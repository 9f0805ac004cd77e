// Package main provides the CLI entrypoint for seteerros.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/card"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/config"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/generator"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/historyui"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/identity"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/logging"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/reader"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/resultsync"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/scene"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/session"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/stats"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/store"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/tui"
)

const (
	defaultServerIP       = "127.0.0.1"
	defaultServerPort     = 8080
	defaultServerTimeout  = 10
	defaultResultsTimeout = 30
	defaultReaderListen   = "127.0.0.1:8765"
	defaultLogLevel       = "info"
	defaultCurveWindow    = 10
	defaultMockListen     = "127.0.0.1:8080"
)

var (
	playTimeLimit      int
	playTotalErrors    int
	playMaxWrong       int
	playResultsTimeout int
	playServerIP       string
	playPort           int
	playGameID         int
	playTimeout        int
	playRetryPolicy    string
	playFetchOnConnect bool
	playReader         bool
	playReaderListen   string
	playLogLevel       string
	playLogFile        string
	playScene          string
	playSeed           int64
	playShuffle        bool
	playDemoCard       string
	playNoJournal      bool

	historySince  string
	historyLast   int
	historyCause  string
	historyWindow int
	historyText   bool

	mockListen    string
	mockOpen      bool
	mockProvision []string
	mockLogLevel  string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "seteerros",
		Short:         "Spot-the-seven-errors kiosk game",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	flags := rootCmd.Flags()
	flags.IntVar(&playTimeLimit, "time-limit", int(model.DefaultTimeLimit/time.Second), "session time limit in seconds")
	flags.IntVar(&playTotalErrors, "total-errors", model.DefaultTotalErrors, "errors hidden in the picture")
	flags.IntVar(&playMaxWrong, "max-wrong", model.DefaultMaxWrongAttempts, "wrong attempts that end a session")
	flags.IntVar(&playResultsTimeout, "results-timeout", defaultResultsTimeout, "seconds before the results screen returns to idle")
	flags.StringVar(&playServerIP, "server-ip", defaultServerIP, "identity server host")
	flags.IntVar(&playPort, "port", defaultServerPort, "identity server port")
	flags.IntVar(&playGameID, "game-id", model.GameID, "game id reported with scores")
	flags.IntVar(&playTimeout, "timeout", defaultServerTimeout, "identity server request timeout in seconds")
	flags.StringVar(&playRetryPolicy, "retry-policy", string(resultsync.RetryManual), "what to do with an incomplete delivery: manual or next-connect")
	flags.BoolVar(&playFetchOnConnect, "fetch-on-connect", true, "fetch card attributes when a card is tapped")
	flags.BoolVar(&playReader, "reader", true, "serve the local NFC reader bridge")
	flags.StringVar(&playReaderListen, "reader-listen", defaultReaderListen, "reader bridge listen address")
	flags.StringVar(&playLogLevel, "log-level", defaultLogLevel, "log level (trace, debug, info, warn, error)")
	flags.StringVar(&playLogFile, "log-file", "", "log file path (default: data dir)")
	flags.StringVar(&playScene, "scene", "", "scene file or name in the scenes directory (default: built-in)")
	flags.Int64Var(&playSeed, "seed", 0, "place errors randomly using this seed")
	flags.BoolVar(&playShuffle, "shuffle", false, "place errors randomly on every launch")
	flags.StringVar(&playDemoCard, "demo-card", "", "enable c/d keys to tap and remove this card id")
	flags.BoolVar(&playNoJournal, "no-journal", false, "do not record results in the local journal")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newMockServerCmd())

	return rootCmd
}

type playConfig struct {
	game           model.GameConfig
	messages       tui.Messages
	resultsTimeout time.Duration
	serverTimeout  time.Duration
	retryPolicy    resultsync.RetryPolicy
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	cfgPath := config.DefaultConfigPath()
	fileCfg, found, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !found {
		logErrf("config file %s not found; using defaults (create one with: seteerros config)\n", cfgPath)
	}

	pc, err := resolvePlayConfig(cmd, fileCfg)
	if err != nil {
		return err
	}

	logPath := playLogFile
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}
	logger, logFile, err := logging.OpenFile(logPath, logging.ParseLevel(playLogLevel))
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			// Best-effort log close.
			_ = cerr
		}
	}()

	sc, err := resolveScene(pc.game.TotalErrors)
	if err != nil {
		return err
	}
	logger.Info().Str("scene", sc.Name).Int("errors", len(sc.Errors)).Msg("scene loaded")

	var st *store.Store
	if !playNoJournal {
		st, err = store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	registry := card.NewRegistry()
	client := identity.New(identity.BaseURL(playServerIP, playPort), pc.serverTimeout)
	svc := resultsync.New(client, registry, resultsync.Options{
		GameID:         playGameID,
		RetryPolicy:    pc.retryPolicy,
		FetchOnConnect: playFetchOnConnect,
		Logger:         logger,
	})
	// Closed before the store so late outcomes still reach the journal.
	defer svc.Close()

	var sinks session.Sinks
	if st != nil {
		journal := store.NewJournal(st, logger)
		sinks = append(sinks, journal)
		svc.OnEvent("journal", func(ev resultsync.Event) {
			if ev.Kind == resultsync.EventOutcome && ev.Outcome != nil {
				journal.RecordOutcome(*ev.Outcome)
			}
		})
	}
	sinks = append(sinks, svc)

	sess, err := session.New(pc.game, sinks)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	bridgeDone := make(chan struct{})
	if playReader {
		bridge := reader.NewBridge(registry, logger)
		go func() {
			defer close(bridgeDone)
			if err := bridge.ListenAndServe(ctx, playReaderListen); err != nil {
				logger.Error().Err(err).Msg("reader bridge stopped")
			}
		}()
	} else {
		close(bridgeDone)
	}

	m := tui.NewModel(tui.Options{
		Session:        sess,
		Scene:          sc,
		Registry:       registry,
		Sync:           svc,
		Store:          st,
		Messages:       pc.messages,
		ResultsTimeout: pc.resultsTimeout,
		DemoCard:       playDemoCard,
		Logger:         logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	forwarder := tui.NewForwarder(program)
	unsubscribeCard := registry.Subscribe("tui", forwarder.CardListener())
	unsubscribeSync := svc.OnEvent("tui", forwarder.SyncListener())
	defer unsubscribeCard()
	defer unsubscribeSync()

	logger.Info().
		Str("server", identity.BaseURL(playServerIP, playPort)).
		Str("retry_policy", string(pc.retryPolicy)).
		Msg("game started")
	_, runErr := program.Run()
	cancel()
	<-bridgeDone
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

func resolvePlayConfig(cmd *cobra.Command, fileCfg config.FileConfig) (playConfig, error) {
	applyIntConfig(cmd, "time-limit", &playTimeLimit, fileCfg.Game.TimeLimit)
	applyIntConfig(cmd, "total-errors", &playTotalErrors, fileCfg.Game.TotalErrors)
	applyIntConfig(cmd, "max-wrong", &playMaxWrong, fileCfg.Game.MaxWrongAttempts)
	applyIntConfig(cmd, "results-timeout", &playResultsTimeout, fileCfg.Game.ResultsTimeout)
	applyStringConfig(cmd, "server-ip", &playServerIP, fileCfg.Server.IP)
	applyIntConfig(cmd, "port", &playPort, fileCfg.Server.Port)
	applyIntConfig(cmd, "game-id", &playGameID, fileCfg.Server.GameID)
	applyIntConfig(cmd, "timeout", &playTimeout, fileCfg.Server.Timeout)
	applyStringConfig(cmd, "retry-policy", &playRetryPolicy, fileCfg.Sync.RetryPolicy)
	applyBoolConfig(cmd, "fetch-on-connect", &playFetchOnConnect, fileCfg.Sync.FetchOnConnect)
	applyBoolConfig(cmd, "reader", &playReader, fileCfg.Reader.Enabled)
	applyStringConfig(cmd, "reader-listen", &playReaderListen, fileCfg.Reader.Listen)
	applyStringConfig(cmd, "log-level", &playLogLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &playLogFile, fileCfg.Log.File)
	applyStringConfig(cmd, "scene", &playScene, fileCfg.Scene.Path)
	applyInt64Config(cmd, "seed", &playSeed, fileCfg.Scene.Seed)

	pc := playConfig{
		game: model.GameConfig{
			TimeLimit:        time.Duration(playTimeLimit) * time.Second,
			TotalErrors:      playTotalErrors,
			MaxWrongAttempts: playMaxWrong,
			Scoring:          model.DefaultScoreConfig(),
		},
		messages:       tui.DefaultMessages(),
		resultsTimeout: time.Duration(playResultsTimeout) * time.Second,
		serverTimeout:  time.Duration(playTimeout) * time.Second,
	}
	if err := applyScoreConfig(&pc.game.Scoring, fileCfg.Score); err != nil {
		return pc, err
	}
	applyMessagesConfig(&pc.messages, fileCfg.Messages)

	policy, err := resultsync.ParseRetryPolicy(playRetryPolicy)
	if err != nil {
		return pc, fmt.Errorf("--retry-policy: %w", err)
	}
	pc.retryPolicy = policy

	if err := validateConfig(pc); err != nil {
		return pc, err
	}
	return pc, nil
}

func resolveScene(totalErrors int) (*scene.Scene, error) {
	base := scene.Default()
	if playScene != "" {
		path := resolveScenePath(playScene)
		loaded, err := scene.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load scene: %w", err)
		}
		base = loaded
	}
	if playShuffle || playSeed != 0 {
		gen := generator.New()
		if playSeed != 0 {
			gen = generator.NewSeeded(playSeed)
		}
		laid, err := gen.Layout(base, totalErrors)
		if err != nil {
			return nil, fmt.Errorf("failed to place errors in scene %q: %w", base.Name, err)
		}
		return laid, nil
	}
	if err := base.Validate(totalErrors); err != nil {
		return nil, fmt.Errorf("%w (adjust --total-errors or use --shuffle)", err)
	}
	return base, nil
}

// resolveScenePath treats a bare name as a file in the scenes directory.
func resolveScenePath(value string) string {
	if strings.ContainsRune(value, os.PathSeparator) {
		return value
	}
	if _, err := os.Stat(value); err == nil {
		return value
	}
	name := value
	if filepath.Ext(name) == "" {
		name += ".scene"
	}
	return filepath.Join(config.DefaultSceneDir(), name)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse journaled results and deliveries",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().StringVar(&historyCause, "cause", "", "end cause filter (completed, timed_out, too_many_wrong_attempts)")
	cmd.Flags().IntVar(&historyWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&historyText, "text", false, "print a text report instead of the browser")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := historyConfig()
	if err != nil {
		return err
	}
	fileCfg, _, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyScoreConfig(&cfg.Scoring, fileCfg.Score); err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if historyText {
		return printHistory(cmd, st, cfg)
	}
	program := tea.NewProgram(historyui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func historyConfig() (model.HistoryConfig, error) {
	var cfg model.HistoryConfig
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	if historyLast < 0 {
		return cfg, fmt.Errorf("--last must be >= 0")
	}
	if historyWindow < 1 {
		return cfg, fmt.Errorf("--curve-window must be >= 1")
	}
	cause, err := historyui.ParseCause(historyCause)
	if err != nil {
		return cfg, fmt.Errorf("invalid --cause value: %w", err)
	}
	cfg.Last = historyLast
	cfg.Cause = cause
	cfg.Window = historyWindow
	cfg.Scoring = model.DefaultScoreConfig()
	return cfg, nil
}

func printHistory(cmd *cobra.Command, st *store.Store, cfg model.HistoryConfig) error {
	report, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Results); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(report.Results) == 0 {
		return nil
	}
	if err := stats.RenderCauseTable(out, report.Results); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderCurves(out, report.Results, cfg); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderResultTable(out, report.Results, report.Latest); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if n := len(report.Undelivered); n > 0 {
		if _, err := fmt.Fprintf(out, "%d result(s) not delivered to the identity server.\n", n); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newMockServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory identity server for testing",
		Args:  cobra.NoArgs,
		RunE:  runMockServerCmd,
	}
	cmd.Flags().StringVar(&mockListen, "listen", defaultMockListen, "listen address")
	cmd.Flags().BoolVar(&mockOpen, "open", false, "accept scores from unregistered cards")
	cmd.Flags().StringSliceVar(&mockProvision, "provision", nil, "card ids registered at startup")
	cmd.Flags().StringVar(&mockLogLevel, "log-level", defaultLogLevel, "log level")
	return cmd
}

func runMockServerCmd(cmd *cobra.Command, _ []string) error {
	logger := logging.New(os.Stderr, logging.ParseLevel(mockLogLevel))
	srv := identity.NewServer()
	srv.RequireRegistration = !mockOpen
	for _, id := range mockProvision {
		srv.Provision(strings.TrimSpace(id))
	}

	httpSrv := &http.Server{
		Addr:              mockListen,
		Handler:           requestLogger(logger, srv.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", mockListen).Bool("require_registration", srv.RequireRegistration).Msg("mock identity server listening")
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mock server failed: %w", err)
	case <-cmd.Context().Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyScoreConfig(target *model.ScoreConfig, cfg config.ScoreConfig) error {
	if cfg.HighThreshold != nil {
		target.HighThreshold = *cfg.HighThreshold
	}
	if cfg.MediumThreshold != nil {
		target.MediumThreshold = *cfg.MediumThreshold
	}
	bands := []struct {
		name   string
		values []int
		target *model.ScoreTriple
	}{
		{"high", cfg.High, &target.High},
		{"medium", cfg.Medium, &target.Medium},
		{"low", cfg.Low, &target.Low},
	}
	for _, b := range bands {
		if b.values == nil {
			continue
		}
		if len(b.values) != 3 {
			return fmt.Errorf("score.%s must list exactly 3 values (empathy, creativity, problem solving)", b.name)
		}
		*b.target = model.ScoreTriple{Empathy: b.values[0], Creativity: b.values[1], ProblemSolving: b.values[2]}
	}
	return nil
}

func applyMessagesConfig(target *tui.Messages, cfg config.MessagesConfig) {
	if cfg.Completed != nil {
		target.Completed = *cfg.Completed
	}
	if cfg.TimedOut != nil {
		target.TimedOut = *cfg.TimedOut
	}
	if cfg.TooManyWrong != nil {
		target.TooManyWrong = *cfg.TooManyWrong
	}
	if cfg.WaitingCard != nil {
		target.WaitingCard = *cfg.WaitingCard
	}
}

func defaultConfigTemplate() string {
	scoring := model.DefaultScoreConfig()
	return fmt.Sprintf(`# seteerros configuration
# Uncomment a value to enable it. CLI flags override config values.

[game]
# time-limit = %d            # Session time limit in seconds
# total-errors = %d            # Errors hidden in the picture
# max-wrong-attempts = %d      # Wrong attempts that end a session
# results-timeout = %d        # Seconds before the results screen returns to idle

[score]
# high-threshold = %d          # Errors found for the high band
# medium-threshold = %d        # Errors found for the medium band
# high = [%d, %d, %d]          # Empathy, creativity, problem solving
# medium = [%d, %d, %d]
# low = [%d, %d, %d]

[server]
# ip = %q
# port = %d
# game-id = %d
# timeout = %d               # Request timeout in seconds

[sync]
# retry-policy = %q      # "manual" or "next-connect"
# fetch-on-connect = true

[reader]
# enabled = true
# listen = %q

[log]
# level = %q
# file = ""                  # Default: data dir

[messages]
# completed = %q
# timed-out = %q
# too-many-wrong = %q
# waiting-card = %q

[scene]
# path = ""                  # Scene file or name in the scenes directory
# seed = 0                   # Non-zero places errors randomly
`,
		int(model.DefaultTimeLimit/time.Second),
		model.DefaultTotalErrors,
		model.DefaultMaxWrongAttempts,
		defaultResultsTimeout,
		scoring.HighThreshold,
		scoring.MediumThreshold,
		scoring.High.Empathy, scoring.High.Creativity, scoring.High.ProblemSolving,
		scoring.Medium.Empathy, scoring.Medium.Creativity, scoring.Medium.ProblemSolving,
		scoring.Low.Empathy, scoring.Low.Creativity, scoring.Low.ProblemSolving,
		defaultServerIP,
		defaultServerPort,
		model.GameID,
		defaultServerTimeout,
		string(resultsync.RetryManual),
		defaultReaderListen,
		defaultLogLevel,
		tui.DefaultMessages().Completed,
		tui.DefaultMessages().TimedOut,
		tui.DefaultMessages().TooManyWrong,
		tui.DefaultMessages().WaitingCard,
	)
}

func validateConfig(pc playConfig) error {
	g := pc.game
	if g.TimeLimit <= 0 {
		return fmt.Errorf("--time-limit must be > 0")
	}
	if g.TotalErrors <= 0 {
		return fmt.Errorf("--total-errors must be > 0")
	}
	if g.MaxWrongAttempts <= 0 {
		return fmt.Errorf("--max-wrong must be > 0")
	}
	if pc.resultsTimeout <= 0 {
		return fmt.Errorf("--results-timeout must be > 0")
	}
	if pc.serverTimeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if playPort <= 0 || playPort > 65535 {
		return fmt.Errorf("--port must be between 1 and 65535")
	}
	if strings.TrimSpace(playServerIP) == "" {
		return fmt.Errorf("--server-ip must not be empty")
	}
	if playGameID <= 0 {
		return fmt.Errorf("--game-id must be > 0")
	}
	if playReader && strings.TrimSpace(playReaderListen) == "" {
		return fmt.Errorf("--reader-listen must not be empty")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
