package resourcechart

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

// errReader simulates an io.Reader that returns an error on Read.
type errReader struct{ err error }

func (e *errReader) Read(p []byte) (int, error) { return 0, e.err }

// readAllLines drains a StringReader until EOF.
func readAllLines(t *testing.T, r StringReader) [][]string {
	t.Helper()

	var lines [][]string
	for {
		line, err := r.Read(context.Background())
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines = append(lines, line)
	}
}

func TestCsvStringReader(t *testing.T) {
	t.Run("ReadLinesThenEOF", func(t *testing.T) {
		r := NewCsvStringReader(strings.NewReader("1,2,3,4\n5,6,7,8\n"))
		got := readAllLines(t, r)
		want := [][]string{{"1", "2", "3", "4"}, {"5", "6", "7", "8"}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("unexpected lines: got %v want %v", got, want)
		}
		if r.lineCount != 2 {
			t.Fatalf("expected lineCount 2, got %d", r.lineCount)
		}
	})

	t.Run("VariableFieldCount", func(t *testing.T) {
		r := NewCsvStringReader(strings.NewReader("1,2,3,4\n5,6\n"))
		got := readAllLines(t, r)
		want := [][]string{{"1", "2", "3", "4"}, {"5", "6"}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("unexpected lines: got %v want %v", got, want)
		}
	})

	t.Run("ParseErrorIgnored", func(t *testing.T) {
		r := NewCsvStringReader(strings.NewReader("a,\"b"))
		_, err := r.Read(context.Background())
		if err != errIgnoreThisRow {
			t.Fatalf("expected errIgnoreThisRow, got %v", err)
		}
	})

	t.Run("UnderlyingError", func(t *testing.T) {
		underlying := errors.New("boom")
		r := NewCsvStringReader(&errReader{err: underlying})
		_, err := r.Read(context.Background())
		if !errors.Is(err, underlying) {
			t.Fatalf("expected underlying error %v, got %v", underlying, err)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := NewCsvStringReader(strings.NewReader("1,2,3,4\n"))
		if _, err := r.Read(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRelaxedStringReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{"Spaces", "1 2 3\n4 5 6\n", [][]string{{"1", "2", "3"}, {"4", "5", "6"}}},
		{"Tabs", "1\t2\t3\n7\t8\t9\n", [][]string{{"1", "2", "3"}, {"7", "8", "9"}}},
		{"MultipleSpacesAndTabs", "1  \t\t  2    3\n", [][]string{{"1", "2", "3"}}},
		{"Commas", "1,2,3\n4,5,6\n", [][]string{{"1", "2", "3"}, {"4", "5", "6"}}},
		{"MixedSeparators", " 1,\t2  ,  3\t\n4 , 5\t,6\n", [][]string{{"1", "2", "3"}, {"4", "5", "6"}}},
		{"NoTrailingNewline", "1 2", [][]string{{"1", "2"}}},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAllLines(t, NewRelaxedStringReader(strings.NewReader(tt.input)))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("unexpected split: got %v want %v", got, tt.want)
			}
		})
	}

	t.Run("UnderlyingError", func(t *testing.T) {
		underlying := errors.New("boom")
		r := NewRelaxedStringReader(&errReader{err: underlying})
		_, err := r.Read(context.Background())
		if !errors.Is(err, underlying) {
			t.Fatalf("expected underlying error %v, got %v", underlying, err)
		}
	})
}

// staticStringReader yields the given lines then io.EOF.
type staticStringReader struct {
	lines [][]string
	i     int
}

func (r *staticStringReader) Read(ctx context.Context) ([]string, error) {
	if r.i >= len(r.lines) {
		return nil, io.EOF
	}
	line := r.lines[r.i]
	r.i++
	return line, nil
}

func TestTextToResourceRowReader(t *testing.T) {
	t.Run("TimestampColumn", func(t *testing.T) {
		r := &TextToResourceRowReader{
			Input:          &staticStringReader{lines: [][]string{{"1000", "12.5", "2048", "7"}}},
			TimestampIndex: 0,
		}

		got, err := r.Read(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := ResourceRow{Timestamp: 1000, CPU: 12.5, RAM: 2048, Players: 7}
		if got != want {
			t.Fatalf("got %+v want %+v", got, want)
		}
	})

	t.Run("TimestampInTheMiddle", func(t *testing.T) {
		r := &TextToResourceRowReader{
			Input:          &staticStringReader{lines: [][]string{{"12.5", "1000", "2048", "7"}}},
			TimestampIndex: 1,
		}

		got, err := r.Read(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := ResourceRow{Timestamp: 1000, CPU: 12.5, RAM: 2048, Players: 7}
		if got != want {
			t.Fatalf("got %+v want %+v", got, want)
		}
	})

	t.Run("TimestampScale", func(t *testing.T) {
		r := &TextToResourceRowReader{
			Input:          &staticStringReader{lines: [][]string{{"1500000000", "1", "2", "3"}}},
			TimestampIndex: 0,
			TimestampScale: 1000,
		}

		got, err := r.Read(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Timestamp != 1500000000000 {
			t.Fatalf("expected scaled timestamp, got %v", got.Timestamp)
		}
	})

	t.Run("GeneratedTimestamp", func(t *testing.T) {
		r := &TextToResourceRowReader{
			Input:              &staticStringReader{lines: [][]string{{"1", "2", "3"}}},
			TimestampIndex:     -1,
			TimestampGenerator: func() float64 { return 42 },
			TimestampScale:     1000,
		}

		got, err := r.Read(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The scale only applies to a timestamp column.
		want := ResourceRow{Timestamp: 42, CPU: 1, RAM: 2, Players: 3}
		if got != want {
			t.Fatalf("got %+v want %+v", got, want)
		}
	})

	t.Run("DefaultGeneratorIsNow", func(t *testing.T) {
		r := &TextToResourceRowReader{
			Input:          &staticStringReader{lines: [][]string{{"1", "2", "3"}}},
			TimestampIndex: -1,
		}

		before := NowTimestampGenerator()
		got, err := r.Read(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		after := NowTimestampGenerator()

		if got.Timestamp < before || got.Timestamp > after {
			t.Fatalf("timestamp %v not within [%v, %v]", got.Timestamp, before, after)
		}
	})

	t.Run("IgnoresBadRows", func(t *testing.T) {
		for _, line := range [][]string{
			{"1000", "abc", "2", "3"},
			{"1000", "1", "2"},
			{"1000", "1", "2", "3", "4"},
			{},
		} {
			r := &TextToResourceRowReader{
				Input:          &staticStringReader{lines: [][]string{line}},
				TimestampIndex: 0,
			}
			if _, err := r.Read(context.Background()); err != errIgnoreThisRow {
				t.Fatalf("line %v: expected errIgnoreThisRow, got %v", line, err)
			}
		}
	})

	t.Run("EOF", func(t *testing.T) {
		r := &TextToResourceRowReader{Input: &staticStringReader{}}
		if _, err := r.Read(context.Background()); err != io.EOF {
			t.Fatalf("expected io.EOF, got %v", err)
		}
	})
}

func TestReadAllRows(t *testing.T) {
	t.Run("SkipsIgnoredRows", func(t *testing.T) {
		reader := &TextToResourceRowReader{
			Input:          NewRelaxedStringReader(strings.NewReader("1 10 100 1\nnot a row\n2 20 200 2\n")),
			TimestampIndex: 0,
		}

		got, err := ReadAllRows(context.Background(), reader)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []ResourceRow{
			{Timestamp: 1, CPU: 10, RAM: 100, Players: 1},
			{Timestamp: 2, CPU: 20, RAM: 200, Players: 2},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %+v want %+v", got, want)
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		reader := &TextToResourceRowReader{Input: NewRelaxedStringReader(strings.NewReader(""))}
		got, err := ReadAllRows(context.Background(), reader)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("PropagatesErrors", func(t *testing.T) {
		underlying := errors.New("boom")
		reader := &TextToResourceRowReader{Input: NewRelaxedStringReader(&errReader{err: underlying})}
		if _, err := ReadAllRows(context.Background(), reader); !errors.Is(err, underlying) {
			t.Fatalf("expected %v, got %v", underlying, err)
		}
	})
}
