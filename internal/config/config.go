// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	LogLevel    string `yaml:"log_level"`
	LogPretty   bool   `yaml:"log_pretty"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Columns names the header fields read from each tick file.
type Columns struct {
	TradePrice   string `yaml:"trade_price"`
	Bid          string `yaml:"bid"`
	Ask          string `yaml:"ask"`
	AvgPrice     string `yaml:"avg_price"`
	Date         string `yaml:"date"`
	Time         string `yaml:"time"`
	Millis       string `yaml:"millis"`
	Quantity     string `yaml:"quantity"`
	OpenInterest string `yaml:"open_interest"`
}

// Input describes where tick files live and how they are laid out.
type Input struct {
	Dir       string  `yaml:"dir"`
	Extension string  `yaml:"extension"`
	Delimiter string  `yaml:"delimiter"`
	Columns   Columns `yaml:"columns"`
}

// Output controls the artifacts written per symbol.
type Output struct {
	Dir         string `yaml:"dir"`
	Charts      bool   `yaml:"charts"`
	ChartFormat string `yaml:"chart_format"`
	Audit       bool   `yaml:"audit"`
	Workers     int    `yaml:"workers"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App    App    `yaml:"app"`
	Input  Input  `yaml:"input"`
	Output Output `yaml:"output"`
}

// Default returns a configuration that only lacks an input directory.
func Default() Config {
	return Config{
		App: App{Name: "leeready", LogLevel: "info"},
		Input: Input{
			Extension: ".txt",
			Delimiter: "\t",
			Columns: Columns{
				TradePrice:   "LASTPX",
				Bid:          "B1",
				Ask:          "S1",
				AvgPrice:     "AVGPX",
				Date:         "TDATE",
				Time:         "TTIME",
				Millis:       "UPDATEMILLISEC",
				Quantity:     "TQ",
				OpenInterest: "OPENINTS",
			},
		},
		Output: Output{Dir: ".", Charts: true, ChartFormat: "png", Workers: 1},
	}
}

// Load reads a YAML file from disk over the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DelimiterRune resolves the configured field separator. "tab" and `\t` mean a tab.
func (in Input) DelimiterRune() (rune, error) {
	switch strings.ToLower(in.Delimiter) {
	case "", "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	}
	if utf8.RuneCountInString(in.Delimiter) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", in.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(in.Delimiter)
	return r, nil
}

// Validate checks the settings a run cannot proceed without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input.Dir) == "" {
		return errors.New("input.dir is required")
	}
	if _, err := c.Input.DelimiterRune(); err != nil {
		return fmt.Errorf("input.delimiter: %w", err)
	}
	cols := map[string]string{
		"trade_price": c.Input.Columns.TradePrice,
		"bid":         c.Input.Columns.Bid,
		"ask":         c.Input.Columns.Ask,
		"avg_price":   c.Input.Columns.AvgPrice,
	}
	for key, name := range cols {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("input.columns.%s must not be empty", key)
		}
	}
	if c.Output.Workers < 1 {
		return errors.New("output.workers must be >= 1")
	}
	switch strings.ToLower(c.Output.ChartFormat) {
	case "png", "svg", "pdf", "jpg", "jpeg", "tif", "tiff", "eps":
	default:
		return fmt.Errorf("output.chart_format %q is not supported", c.Output.ChartFormat)
	}
	return nil
}
