// Package report renders report rows as a console table.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/transactions/internal/database"
)

// Headers label report columns in order. Rows with fewer columns use a
// prefix of them.
var Headers = []string{"ID", "Name", "Date", "Total Amount"}

const separator = " | "

// Write prints rows as a fixed-width table framed by dash lines. Nothing
// is written for an empty result.
func Write(w io.Writer, rows []database.Row) error {
	if len(rows) == 0 {
		return nil
	}
	numCols := len(rows[0])

	cells := make([][]string, len(rows))
	widths := make([]int, numCols)
	for i := 0; i < numCols; i++ {
		widths[i] = utf8.RuneCountInString(header(i))
	}
	for r, row := range rows {
		cells[r] = make([]string, len(row))
		for i, v := range row {
			cells[r][i] = FormatValue(v)
			if i < numCols {
				widths[i] = max(widths[i], utf8.RuneCountInString(cells[r][i]))
			}
		}
	}

	heads := make([]string, numCols)
	for i := range heads {
		heads[i] = header(i)
	}
	headerLine := joinPadded(heads, widths)
	rule := strings.Repeat("-", utf8.RuneCountInString(headerLine))

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString(headerLine + "\n")
	b.WriteString(rule + "\n")
	for _, row := range cells {
		b.WriteString(joinPadded(row, widths) + "\n")
	}
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func header(i int) string {
	if i < len(Headers) {
		return Headers[i]
	}
	return ""
}

func joinPadded(vals []string, widths []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		w := 0
		if i < len(widths) {
			w = widths[i]
		}
		parts[i] = fmt.Sprintf("%-*s", w, v)
	}
	return strings.Join(parts, separator)
}

// FormatValue renders one cell. Dates print as YYYY-MM-DD and decimals
// keep their scale.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	case decimal.Decimal:
		if exp := x.Exponent(); exp < 0 {
			return x.StringFixed(-exp)
		}
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(v)
	}
}
