package resourcechart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DefaultWindowSize = 10000
	MaxWindowSize     = 1000000

	InputFormatRelaxed = "relaxed"
	InputFormatCsv     = "csv"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Host           string    `mapstructure:"host"`
	Port           uint16    `mapstructure:"port"`
	Target         string    `mapstructure:"target"`
	Title          string    `mapstructure:"title"`
	WindowSize     int       `mapstructure:"window_size"`
	InputFormat    string    `mapstructure:"input_format"`
	TimestampIndex int       `mapstructure:"timestamp_column"`
	TimestampScale float64   `mapstructure:"timestamp_scale"`
	HighchartsURL  string    `mapstructure:"highcharts_url"`
	OpenBrowser    bool      `mapstructure:"open_browser"`
	LogLevel       string    `mapstructure:"log_level"`
	Series         SeriesSet `mapstructure:"series"`
}

// Registers defaults and the RESOURCECHART_ environment prefix on v. Flags are
// bound by the commands.
func SetConfigDefaults(v *viper.Viper) {
	defaults := DefaultSeriesSet()

	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 5274)
	v.SetDefault("target", "resourceChart")
	v.SetDefault("title", "Resource usage")
	v.SetDefault("window_size", DefaultWindowSize)
	v.SetDefault("input_format", InputFormatRelaxed)
	v.SetDefault("timestamp_column", 0)
	v.SetDefault("timestamp_scale", 1.0)
	v.SetDefault("highcharts_url", DefaultHighchartsURL)
	v.SetDefault("open_browser", false)
	v.SetDefault("log_level", logrus.InfoLevel.String())

	for key, style := range map[string]SeriesStyle{
		"cpu":     defaults.CPU,
		"ram":     defaults.RAM,
		"players": defaults.Players,
	} {
		v.SetDefault("series."+key+".name", style.Name)
		v.SetDefault("series."+key+".type", style.Type)
		v.SetDefault("series."+key+".color", style.Color)
		v.SetDefault("series."+key+".value_suffix", style.ValueSuffix)
	}

	v.SetEnvPrefix("resourcechart")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Reads the optional config file (YAML, TOML or JSON, by extension).
func ReadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return nil
}

func LoadConfig(v *viper.Viper) (Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	config.WindowSize = Min(config.WindowSize, MaxWindowSize)

	return config, nil
}

func (c Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("%w: target must not be empty", ErrInvalidConfig)
	}

	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive, got %d", ErrInvalidConfig, c.WindowSize)
	}

	switch c.InputFormat {
	case InputFormatRelaxed, InputFormatCsv:
	default:
		return fmt.Errorf("%w: input_format must be %q or %q, got %q", ErrInvalidConfig, InputFormatRelaxed, InputFormatCsv, c.InputFormat)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}

	return nil
}

// Builds the reader pipeline for the input, usually stdin.
func (c Config) NewRowReader(input io.Reader) ResourceRowReader {
	var stringReader StringReader
	if c.InputFormat == InputFormatCsv {
		stringReader = NewCsvStringReader(input)
	} else {
		stringReader = NewRelaxedStringReader(input)
	}

	return &TextToResourceRowReader{
		Input:          stringReader,
		TimestampIndex: c.TimestampIndex,
		TimestampScale: c.TimestampScale,
	}
}

func (c Config) PageOptions() PageOptions {
	return PageOptions{
		Title:         c.Title,
		Target:        c.Target,
		HighchartsURL: c.HighchartsURL,
	}
}

// Sets the global logrus level and formatter.
func SetUpLogs(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}
