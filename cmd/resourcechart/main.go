package main

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"os"

	"github.com/cactusdynamics/resourcechart"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	formatHTML   = "html"
	formatScript = "script"
)

var (
	v          = viper.New()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "resourcechart",
	Short: "Plot CPU, RAM and players online as a Highcharts stock chart",
	Long: `resourcechart reads pre-computed resource samples from stdin, one row per
timestamp (timestamp, cpu, ram, players), and plots them as an interactive
stock chart.

Examples:
  tail -f samples.csv | resourcechart serve --open
  resourcechart render --output chart.html < samples.csv`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := resourcechart.ReadConfigFile(v, configFile); err != nil {
			return err
		}
		return resourcechart.SetUpLogs(v.GetString("log_level"))
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live chart that follows stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := resourcechart.LoadConfig(v)
		if err != nil {
			return err
		}

		return runServe(cmd.Context(), config, os.Stdin)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render stdin into a standalone chart page or script",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := resourcechart.LoadConfig(v)
		if err != nil {
			return err
		}

		output := io.Writer(os.Stdout)
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer f.Close()
			output = f
		}

		format, _ := cmd.Flags().GetString("format")
		return runRender(cmd.Context(), config, os.Stdin, output, format)
	},
}

func init() {
	resourcechart.SetConfigDefaults(v)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", logrus.InfoLevel.String(), "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("target", "resourceChart", "Id of the element the chart is mounted on")
	rootCmd.PersistentFlags().String("title", "Resource usage", "Page title")
	rootCmd.PersistentFlags().String("input-format", resourcechart.InputFormatRelaxed, "Input format: relaxed (commas or whitespace) or csv")
	rootCmd.PersistentFlags().Int("timestamp-column", 0, "Column holding the timestamp, <0 to stamp rows as they arrive")
	rootCmd.PersistentFlags().Float64("timestamp-scale", 1, "Multiplier turning the timestamp column into unix milliseconds")
	rootCmd.PersistentFlags().String("highcharts-url", resourcechart.DefaultHighchartsURL, "Highcharts Stock script URL")

	serveCmd.Flags().String("host", "127.0.0.1", "Host to listen on")
	serveCmd.Flags().Uint16("port", 5274, "Port to listen on")
	serveCmd.Flags().Int("window-size", resourcechart.DefaultWindowSize, "Number of most recent rows kept on the chart")
	serveCmd.Flags().Bool("open", false, "Open the chart in a browser")

	renderCmd.Flags().String("format", formatHTML, "Output format: html or script")
	renderCmd.Flags().StringP("output", "o", "", "Output file, stdout if empty")

	for key, flag := range map[string]string{
		"log_level":        "log-level",
		"target":           "target",
		"title":            "title",
		"input_format":     "input-format",
		"timestamp_column": "timestamp-column",
		"timestamp_scale":  "timestamp-scale",
		"highcharts_url":   "highcharts-url",
	} {
		v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}

	v.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	v.BindPFlag("window_size", serveCmd.Flags().Lookup("window-size"))
	v.BindPFlag("open_browser", serveCmd.Flags().Lookup("open"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
}

func runServe(ctx context.Context, config resourcechart.Config, input io.Reader) error {
	logrus.WithFields(logrus.Fields{
		"target":       config.Target,
		"window_size":  config.WindowSize,
		"input_format": config.InputFormat,
	}).Info("configuration loaded")

	metrics := resourcechart.NewMetrics()
	broadcaster := resourcechart.NewChartBroadcaster(config.NewRowReader(input), config.Target, config.Series, config.WindowSize, metrics)
	broadcaster.Start(ctx)

	server := resourcechart.NewHttpServer(broadcaster, config.Host, config.Port, config.PageOptions(), metrics)
	server.OpenBrowser = config.OpenBrowser

	return server.Run()
}

func runRender(ctx context.Context, config resourcechart.Config, input io.Reader, output io.Writer, format string) error {
	if format != formatHTML && format != formatScript {
		return fmt.Errorf("unknown format %q, expected %s or %s", format, formatHTML, formatScript)
	}

	rows, err := resourcechart.ReadAllRows(ctx, config.NewRowReader(input))
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	logrus.WithField("rows", len(rows)).Debug("input read")

	var script bytes.Buffer
	cpu, ram, players := config.Series.Build(rows)
	if err := resourcechart.RenderResourceChart(resourcechart.NewScriptEngine(&script), config.Target, cpu, ram, players); err != nil {
		return err
	}

	if format == formatScript {
		_, err := output.Write(script.Bytes())
		return err
	}

	page := config.PageOptions()
	page.Script = template.JS(script.String())
	return resourcechart.WritePage(output, page)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
