package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/cactusdynamics/resourcechart"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Config holds the configuration for the WS reader
type Config struct {
	ServerURL string
	Output    io.Writer
	Logger    logrus.FieldLogger

	// Stop after this many submissions. Zero means until the server closes.
	Count int
}

// WSReader follows the /ws endpoint and writes the series of every chart
// submission as CSV.
type WSReader struct {
	config    Config
	csvWriter *csv.Writer
}

func NewWSReader(config Config) *WSReader {
	return &WSReader{
		config:    config,
		csvWriter: csv.NewWriter(config.Output),
	}
}

func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	u.Path = "/ws"
	return u.String(), nil
}

// Connect establishes the websocket connection and processes submissions.
func (w *WSReader) Connect(ctx context.Context) error {
	wsURL, err := websocketURL(w.config.ServerURL)
	if err != nil {
		return err
	}

	w.config.Logger.WithField("url", wsURL).Info("connecting to websocket")

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := w.csvWriter.Write([]string{"submission", "series", "x", "y"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for received := 0; w.config.Count == 0 || received < w.config.Count; received++ {
		var submission resourcechart.ChartSubmission
		if err := wsjson.Read(ctx, conn, &submission); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				w.config.Logger.Info("connection closed normally")
				break
			}
			w.config.Logger.WithError(err).Error("error reading submission")
			break
		}

		if err := w.processSubmission(received, submission); err != nil {
			return err
		}
	}

	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

func (w *WSReader) processSubmission(index int, submission resourcechart.ChartSubmission) error {
	w.config.Logger.WithFields(logrus.Fields{
		"target": submission.Target,
		"series": len(submission.Options.Series),
	}).Debug("received submission")

	submissionID := strconv.Itoa(index)

	for _, series := range submission.Options.Series {
		for _, point := range series.Data {
			row := []string{
				submissionID,
				series.Name,
				strconv.FormatFloat(point.Timestamp, 'g', -1, 64),
				strconv.FormatFloat(point.Value, 'g', -1, 64),
			}
			if err := w.csvWriter.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

func main() {
	var serverURL string
	var count int

	rootCmd := &cobra.Command{
		Use:          "resourcechart-ws-reader",
		Short:        "Dump the chart submissions of a resourcechart server as CSV",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := Config{
				ServerURL: serverURL,
				Output:    os.Stdout,
				Logger:    logrus.WithField("tag", "WSReader"),
				Count:     count,
			}

			return NewWSReader(config).Connect(cmd.Context())
		},
	}

	rootCmd.Flags().StringVar(&serverURL, "url", "http://localhost:5274", "URL of the resourcechart server")
	rootCmd.Flags().IntVar(&count, "count", 0, "Exit after this many submissions, 0 to follow until the server closes")

	logrus.SetOutput(os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
