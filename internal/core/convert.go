package core

// convert.go turns source records into staged transactions and then into
// statement arguments for the session's engine.
//
// Dates must be YYYY-MM-DD and prices plain decimals. A row that does not
// parse is skipped, not repaired.

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/source"
)

// ParseRow builds a StagedTransaction from a record. Every field is
// trimmed. The error is a RowParse error naming the transaction id when
// one is available.
func ParseRow(rec source.Record) (StagedTransaction, error) {
	var missing []string
	field := func(col string) string {
		v, ok := rec.Get(col)
		if !ok {
			missing = append(missing, col)
		}
		return strings.TrimSpace(v)
	}

	tx := StagedTransaction{
		ID:           field("transaction_id"),
		ProductName:  field("product_name"),
		StoreName:    field("store_name"),
		SalesRepName: field("sales_representative_name"),
		ClientName:   field("client_name"),
	}
	rawDate := field("transaction_date")
	rawPrice := field("price")

	if len(missing) > 0 {
		return StagedTransaction{}, errs.RowParse("parse_row", tx.ID,
			fmt.Errorf("missing fields: %s", strings.Join(missing, ", ")))
	}

	date, err := time.Parse(time.DateOnly, rawDate)
	if err != nil {
		return StagedTransaction{}, errs.RowParse("parse_row", tx.ID,
			fmt.Errorf("transaction_date %q: want YYYY-MM-DD", rawDate))
	}
	tx.Date = date

	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return StagedTransaction{}, errs.RowParse("parse_row", tx.ID,
			fmt.Errorf("price %q: %w", rawPrice, err))
	}
	tx.Price = price

	return tx, nil
}

// Args returns the staging insert arguments in column order.
func (t StagedTransaction) Args(d commands.Dialect) []any {
	if d == commands.Postgres {
		return []any{t.ID, toPgDate(t.Date), t.ProductName, toPgNumeric(t.Price), t.StoreName, t.SalesRepName, t.ClientName}
	}
	return []any{t.ID, t.Date.Format(time.DateOnly), t.ProductName, t.Price.String(), t.StoreName, t.SalesRepName, t.ClientName}
}

func toPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: true}
}

// toPgNumeric goes through the decimal's string form so no precision is
// lost on the way to NUMERIC.
func toPgNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}
