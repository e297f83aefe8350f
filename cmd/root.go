package cmd

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-screener"
)

type Config struct {
	Similarity *SimilarityConfig `mapstructure:"similarity"`
	Feedback   *FeedbackConfig   `mapstructure:"feedback"`
	Skills     *SkillsConfig     `mapstructure:"skills"`
	Screening  *ScreeningConfig  `mapstructure:"screening"`
	Filters    *FiltersConfig    `mapstructure:"filters"`
}

type SimilarityConfig struct {
	Backend          string             `mapstructure:"backend"`
	MaxAttempts      int                `mapstructure:"max-attempts"`
	AttemptTimeout   time.Duration      `mapstructure:"attempt-timeout"`
	ColdStartBackoff time.Duration      `mapstructure:"cold-start-backoff"`
	TransientBackoff time.Duration      `mapstructure:"transient-backoff"`
	Calibration      *CalibrationConfig `mapstructure:"calibration"`
	HuggingFace      *HuggingFaceConfig `mapstructure:"huggingface"`
	Gemini           *GeminiConfig      `mapstructure:"gemini"`
}

type CalibrationConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Multiplier float64 `mapstructure:"multiplier"`
	Ceiling    float64 `mapstructure:"ceiling"`
}

type HuggingFaceConfig struct {
	URL       string `mapstructure:"url"`
	TokenFile string `mapstructure:"token-file"`
}

type GeminiConfig struct {
	Model      string `mapstructure:"model"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type FeedbackConfig struct {
	Style        string `mapstructure:"style"`
	MaxMissing   int    `mapstructure:"max-missing"`
	TemplateFile string `mapstructure:"template-file"`
}

type SkillsConfig struct {
	VocabularyFile string `mapstructure:"vocabulary-file"`
}

type ScreeningConfig struct {
	Workers int `mapstructure:"workers"`
}

type FiltersConfig struct {
	MinimumScore float64 `mapstructure:"minimum-score"`
	Top          int     `mapstructure:"top"`
	HideFailed   bool    `mapstructure:"hide-failed"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-screener scores resumes against a job description and explains the missing skills",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// a missing .env file is fine
	_ = godotenv.Load()

	setDefaults(viper.GetViper())

	if err := viper.BindEnv("similarity.huggingface.token-file", "HF_TOKEN_FILE"); err != nil {
		log.Fatalf("binding HF_TOKEN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("similarity.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetEnvPrefix("RESUME_SCREENER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("similarity.backend", "huggingface")
	v.SetDefault("similarity.max-attempts", 5)
	v.SetDefault("similarity.attempt-timeout", 30*time.Second)
	v.SetDefault("similarity.cold-start-backoff", 5*time.Second)
	v.SetDefault("similarity.transient-backoff", time.Second)
	v.SetDefault("similarity.calibration.enabled", true)
	v.SetDefault("similarity.calibration.multiplier", 1.30)
	v.SetDefault("similarity.calibration.ceiling", 98.0)
	v.SetDefault("similarity.huggingface.url", "")
	v.SetDefault("similarity.huggingface.token-file", "")
	v.SetDefault("similarity.gemini.model", "text-embedding-004")
	v.SetDefault("similarity.gemini.api-key-file", "")

	v.SetDefault("feedback.style", "narrative")
	v.SetDefault("feedback.max-missing", 7)
	v.SetDefault("feedback.template-file", "")

	v.SetDefault("skills.vocabulary-file", "")
	v.SetDefault("screening.workers", 4)

	v.SetDefault("filters.minimum-score", 0.0)
	v.SetDefault("filters.top", 0)
	v.SetDefault("filters.hide-failed", false)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional unless it was requested explicitly.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound && cfgFile == "" {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
