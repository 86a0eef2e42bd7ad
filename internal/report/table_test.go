package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/transactions/internal/database"
)

func TestWrite(t *testing.T) {
	rows := []database.Row{
		{int64(2), "Cy", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("4.50")},
		{int64(10), "Bob", time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("12.00")},
	}

	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"-------------------------------------",
		"ID | Name | Date       | Total Amount",
		"-------------------------------------",
		"2  | Cy   | 2024-01-11 | 4.50        ",
		"10 | Bob  | 2024-01-13 | 12.00       ",
		"-------------------------------------",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("Write() =\n%s\nwant\n%s", got, want)
	}
}

func TestWrite_ThreeColumns(t *testing.T) {
	rows := []database.Row{{int64(1), "Alexandra", "2024-01-11"}}

	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %d, want 5", len(lines))
	}
	if lines[1] != "ID | Name      | Date      " {
		t.Errorf("header = %q", lines[1])
	}
	if strings.Contains(buf.String(), "Total Amount") {
		t.Error("extra header printed for a three-column result")
	}
	if len(lines[0]) != len(lines[1]) {
		t.Errorf("rule width %d != header width %d", len(lines[0]), len(lines[1]))
	}
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("Write(nil) wrote %q", buf.String())
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "None"},
		{"string", "Bob", "Bob"},
		{"bytes", []byte("4.50"), "4.50"},
		{"date", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "2024-01-15"},
		{"timestamp", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), "2024-01-15 09:30:00"},
		{"decimal keeps scale", decimal.RequireFromString("4.50"), "4.50"},
		{"decimal integer", decimal.NewFromInt(12), "12"},
		{"float", 4.5, "4.5"},
		{"int64", int64(42), "42"},
		{"int32", int32(7), "7"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
