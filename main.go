// Package main provides the entry point for the waytales CLI application.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/waytales/gen"
	"github.com/dgnsrekt/waytales/route"
	"github.com/dgnsrekt/waytales/story"
	"github.com/dgnsrekt/waytales/story/audio"
	"github.com/dgnsrekt/waytales/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	demo       bool
	demoLength time.Duration
	styleFlag  string
	voiceFlag  string

	rootCmd = &cobra.Command{
		Use:   "waytales",
		Short: "Turn a travel route into a narrated audio story",
		Long: "\nPlan a route between two places and listen to a story written" +
			" and narrated for the length of the trip.",
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          execute,
	}
)

func execute(*cobra.Command, []string) error {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	pipeline, planner, err := buildBackends(cfg)
	if err != nil {
		return err
	}

	controller := story.NewController(pipeline, cfg, func() audio.Player {
		return audio.NewOtoPlayer()
	})
	defer controller.Reset()

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		log.Warn("stdout is not a terminal")
	}
	p := tea.NewProgram(ui.NewModel(controller, planner), opts...)

	controller.OnStatus(func(s story.Status) {
		p.Send(ui.StatusMsg(s))
	})

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// loadEngineConfig layers defaults, the config file, and environment
// variables, in that order.
func loadEngineConfig() (story.Config, error) {
	cfg, err := story.LoadConfigFromViper()
	if err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config: %w", err)
	}
	if styleFlag != "" {
		cfg.Style = styleFlag
	}
	if voiceFlag != "" {
		cfg.Voice = voiceFlag
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildBackends wires the generation pipeline and route planner. Demo mode
// swaps in offline fakes so the app runs without keys or network.
func buildBackends(cfg story.Config) (*story.Pipeline, route.Planner, error) {
	if demo {
		log.Info("running in demo mode with offline backends")
		text := gen.NewMockTextGenerator()
		text.Delay = 300 * time.Millisecond
		tts := gen.NewMockSynthesizer()
		pipeline := story.NewPipeline(text, tts, cfg)
		return pipeline, &route.StaticPlanner{Duration: demoLength}, nil
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY is not set (use --demo to run offline)")
	}

	text, err := gen.NewOpenAIGenerator(gen.OpenAIConfig{
		APIKey:            apiKey,
		BaseURL:           viper.GetString("openai.base_url"),
		Model:             viper.GetString("openai.model"),
		RequestsPerMinute: viper.GetInt("openai.requests_per_minute"),
	})
	if err != nil {
		return nil, nil, err
	}

	tts, err := gen.NewSpeechSynthesizer(gen.SpeechConfig{
		APIKey:            apiKey,
		BaseURL:           viper.GetString("openai.base_url"),
		Model:             viper.GetString("openai.speech_model"),
		RequestsPerMinute: viper.GetInt("openai.requests_per_minute"),
	})
	if err != nil {
		return nil, nil, err
	}

	planner := route.NewClient(route.ClientConfig{
		GeocodeURL: viper.GetString("route.geocode_url"),
		RouteURL:   viper.GetString("route.route_url"),
		UserAgent:  "waytales/" + Version,
	})

	return story.NewPipeline(text, tts, cfg), planner, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
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
	rootCmd.Flags().BoolVar(&demo, "demo", false, "run with offline fake backends")
	rootCmd.Flags().DurationVar(&demoLength, "demo-length", 15*time.Minute, "route duration used in demo mode")
	rootCmd.Flags().StringVar(&styleFlag, "style", "", "narrative style for the story")
	rootCmd.Flags().StringVar(&voiceFlag, "voice", "", "narration voice")

	_ = viper.BindPFlag("story.style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("story.voice", rootCmd.Flags().Lookup("voice"))

	rootCmd.AddCommand(configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "waytales")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "waytales")}, dirs...)
	}

	if c := os.Getenv("WAYTALES_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("waytales")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("waytales")
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

	configFile = filepath.Join(dirs[0], "waytales.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
