package resourcechart

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// The pipeline starts with an io.Reader (usually stdin) wrapped by a
// StringReader, which splits lines into columns. TextToResourceRowReader turns
// the columns into ResourceRows, which the ChartBroadcaster (or the render
// command) turns into the three chart series.

var errIgnoreThisRow = errors.New("ignore this row")

// When Read is called, return an array of strings which are the columns.
type StringReader interface {
	Read(context.Context) ([]string, error)
}

// One pre-computed sample of all three series at the same timestamp.
type ResourceRow struct {
	Timestamp float64
	CPU       float64
	RAM       float64
	Players   float64
}

type ResourceRowReader interface {
	Read(context.Context) (ResourceRow, error)
}

// Reads strict CSV via encoding/csv. If the input is separated by spaces, use
// the RelaxedStringReader.
type CsvStringReader struct {
	input     io.Reader
	csvReader *csv.Reader

	lineCount int
}

func NewCsvStringReader(input io.Reader) *CsvStringReader {
	csvReader := csv.NewReader(input)
	// Row length is checked by TextToResourceRowReader with a better message.
	csvReader.FieldsPerRecord = -1

	return &CsvStringReader{
		input:     input,
		csvReader: csvReader,
		lineCount: 0,
	}
}

func (r *CsvStringReader) Read(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	line, err := r.csvReader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}

	r.lineCount++

	if err != nil {
		logger := logrus.WithFields(logrus.Fields{
			"tag":     "CsvString",
			"line":    line,
			"lineNum": r.lineCount,
		})

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			logger.WithError(err).Debug("unable to parse CSV, ignoring...")
			return nil, errIgnoreThisRow
		}

		logger.WithError(err).Error("unable to read CSV")
		return nil, err
	}

	return line, nil
}

// Splits on commas or runs of spaces and tabs. It does not follow CSV
// quoting. This is the default.
type RelaxedStringReader struct {
	input   io.Reader
	scanner *bufio.Scanner

	lineCount int
}

func NewRelaxedStringReader(input io.Reader) *RelaxedStringReader {
	return &RelaxedStringReader{
		input:   input,
		scanner: bufio.NewScanner(input),

		lineCount: 0,
	}
}

var relaxedSplitter = regexp.MustCompile("[ \t]+|,")

func (r *RelaxedStringReader) Read(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			logrus.WithField("tag", "RelaxedString").WithError(err).Error("unable to read line")
			return nil, err
		}
		return nil, io.EOF
	}

	r.lineCount++
	line := r.scanner.Text()

	return Filter(relaxedSplitter.Split(line, -1), func(value string) bool {
		return len(value) > 0
	}), nil
}

// Unix milliseconds, the unit the datetime axis uses.
func NowTimestampGenerator() float64 {
	return float64(time.Now().UnixMicro()) / 1000.0
}

// Turns text columns into ResourceRows. Rows that do not parse or do not carry
// exactly the three values are ignored and logged.
type TextToResourceRowReader struct {
	Input StringReader

	// Column holding the timestamp. If <0, TimestampGenerator is used and all
	// columns are values.
	TimestampIndex int

	// Defaults to NowTimestampGenerator.
	TimestampGenerator func() float64

	// Multiplies the timestamp column, e.g. 1000 for input in unix seconds.
	// Zero means 1.
	TimestampScale float64
}

func (r *TextToResourceRowReader) Read(ctx context.Context) (ResourceRow, error) {
	line, err := r.Input.Read(ctx)
	if err != nil {
		return ResourceRow{}, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"tag":  "TextToResourceRow",
		"line": line,
	})

	var timestamp float64
	values := make([]float64, 0, 3)

	for i, value := range line {
		floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			logger.Warn("cannot parse float, ignoring...")
			return ResourceRow{}, errIgnoreThisRow
		}

		if i == r.TimestampIndex {
			timestamp = floatValue
			continue
		}

		values = append(values, floatValue)
	}

	if len(values) != 3 {
		logger.Warnf("expected 3 values (cpu, ram, players), got %d, ignoring...", len(values))
		return ResourceRow{}, errIgnoreThisRow
	}

	if r.TimestampIndex < 0 {
		generator := r.TimestampGenerator
		if generator == nil {
			generator = NowTimestampGenerator
		}

		timestamp = generator()
	} else if r.TimestampScale != 0 {
		timestamp *= r.TimestampScale
	}

	return ResourceRow{
		Timestamp: timestamp,
		CPU:       values[0],
		RAM:       values[1],
		Players:   values[2],
	}, nil
}

// Reads rows until EOF, skipping ignored rows. Used by the one-shot render.
func ReadAllRows(ctx context.Context, reader ResourceRowReader) ([]ResourceRow, error) {
	rows := make([]ResourceRow, 0)

	for {
		row, err := reader.Read(ctx)
		if err == errIgnoreThisRow {
			continue
		} else if err == io.EOF {
			return rows, nil
		} else if err != nil {
			return rows, err
		}

		rows = append(rows, row)
	}
}
