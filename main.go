// Package main provides the entry point for the capvox CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/muesli/gitcha"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/capvox/capvox/caption"
	"github.com/capvox/capvox/dub"
	"github.com/capvox/capvox/settings"
	"github.com/capvox/capvox/synth"
	"github.com/capvox/capvox/synth/mock"
	"github.com/capvox/capvox/synth/piper"
	"github.com/capvox/capvox/ui"
	"github.com/capvox/capvox/utils"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	mouse      bool
	voice      string
	volume     float64
	speechRate float64
	pitch      float64

	rootCmd = &cobra.Command{
		Use:   "capvox [FILE|DIR]",
		Short: "Dub video captions with synthesized speech",
		Long: paragraph(
			fmt.Sprintf("\nPlay a caption track and %s, keeping speech in sync with the playback clock.", keyword("speak it aloud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		RunE:             execute,
	}
)

// resolveCaptionPath turns the CLI argument into a caption file path.
// A directory (or no argument) is searched for caption files.
func resolveCaptionPath(arg string) (string, error) {
	if arg == "" {
		arg = "."
	}

	st, err := os.Stat(arg)
	if err != nil {
		return "", fmt.Errorf("unable to open %s: %w", arg, err)
	}
	if !st.IsDir() {
		return filepath.Abs(arg) //nolint:wrapcheck
	}

	ch, err := gitcha.FindAllFilesExcept(arg, utils.CaptionExtensions, nil)
	if err != nil {
		return "", fmt.Errorf("unable to search %s: %w", arg, err)
	}
	var found []string
	for res := range ch {
		found = append(found, res.Path)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no caption files in %s", arg)
	}
	sort.Strings(found)
	return found[0], nil
}

// buildSink constructs the synthesis sink selected in the config. A
// configured piper model gets the mock sink chained behind it, so a
// broken synthesis setup degrades to silence instead of killing the
// session.
func buildSink() (synth.Sink, error) {
	engine := viper.GetString("synth.engine")
	switch engine {
	case "", "mock":
		return mock.New(), nil

	case "piper":
		p, err := piper.New(piper.Config{
			Binary:     viper.GetString("synth.piper.binary"),
			ModelPath:  utils.ExpandPath(viper.GetString("synth.piper.model")),
			ConfigPath: utils.ExpandPath(viper.GetString("synth.piper.config")),
			SampleRate: viper.GetInt("synth.piper.sample_rate"),
		})
		if err != nil {
			return nil, fmt.Errorf("unable to set up piper: %w", err)
		}
		chain, err := synth.NewChain(p, mock.New())
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		return chain, nil

	default:
		return nil, fmt.Errorf("unknown synthesis engine %q", engine)
	}
}

// loadSpeech loads the persisted speech preferences, applies any CLI
// overrides, and persists them back when changed.
func loadSpeech(cmd *cobra.Command) (settings.Settings, error) {
	store, err := settings.NewStore(viper.GetString("settings_file"))
	if err != nil {
		return settings.Defaults(), err //nolint:wrapcheck
	}

	prefs, err := store.Load()
	if err != nil {
		log.Warn("unable to load speech settings, using defaults", "err", err)
	}

	changed := false
	if cmd.Flags().Changed("voice") {
		prefs.Voice = voice
		changed = true
	}
	if cmd.Flags().Changed("volume") {
		prefs.Volume = volume
		changed = true
	}
	if cmd.Flags().Changed("rate") {
		prefs.Rate = speechRate
		changed = true
	}
	if cmd.Flags().Changed("pitch") {
		prefs.Pitch = pitch
		changed = true
	}

	if changed {
		if err := store.Save(prefs); err != nil {
			log.Warn("unable to persist speech settings", "err", err)
		}
	}
	return prefs, nil
}

// buildEngine wires a controller over the given store with the
// configured sink and speech preferences.
func buildEngine(cmd *cobra.Command, store *caption.Store) (*dub.Controller, synth.Sink, error) {
	cfg, err := dub.LoadConfigFromViper()
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	sink, err := buildSink()
	if err != nil {
		return nil, nil, err
	}

	prefs, err := loadSpeech(cmd)
	if err != nil {
		sink.Close() //nolint:errcheck
		return nil, nil, err
	}

	controller := dub.NewController(cfg, store, sink)
	controller.SetSpeech(prefs.Voice, prefs.Volume, prefs.Rate, prefs.Pitch)
	return controller, sink, nil
}

func execute(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("capvox needs a terminal; use `capvox transcript` for plain output")
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	path, err := resolveCaptionPath(arg)
	if err != nil {
		return err
	}

	segments, err := caption.LoadFile(path)
	if err != nil {
		return err //nolint:wrapcheck
	}

	store := caption.NewStore()
	store.Load(segments)

	controller, sink, err := buildEngine(cmd, store)
	if err != nil {
		return err
	}
	defer sink.Close() //nolint:errcheck

	clock := dub.NewManualClock()
	controller.SetClock(clock)

	return ui.Run(ui.Config{
		Title:       filepath.Base(path),
		WatchPath:   path,
		EnableMouse: mouse,
	}, controller, clock, store)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.PersistentFlags().StringVar(&voice, "voice", "", "synthesis voice")
	rootCmd.PersistentFlags().Float64Var(&volume, "volume", 1.0, "speech volume (0-1)")
	rootCmd.PersistentFlags().Float64Var(&speechRate, "rate", 1.0, "speaking rate multiplier")
	rootCmd.PersistentFlags().Float64Var(&pitch, "pitch", 1.0, "speech pitch multiplier")

	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("synth.engine", "mock")
	viper.SetDefault("synth.piper.binary", "piper")
	viper.SetDefault("synth.piper.model", "")
	viper.SetDefault("synth.piper.config", "")
	viper.SetDefault("synth.piper.sample_rate", 22050)
	viper.SetDefault("serve.addr", "localhost:8675")

	rootCmd.AddCommand(configCmd, manCmd, fetchCmd, transcriptCmd, voicesCmd, serveCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "capvox")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find the configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "capvox")}, dirs...)
	}

	if c := os.Getenv("CAPVOX_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("capvox")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("capvox")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "capvox.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
