package commands

import "strings"

// Dimension tables are listed parents first so foreign keys resolve on create.

const pgTables = `
-- table_create_clients
CREATE TABLE IF NOT EXISTS clients
(
    id   SERIAL PRIMARY KEY,
    name VARCHAR(255) UNIQUE NOT NULL
)
-- table_create_sales_representatives
CREATE TABLE IF NOT EXISTS sales_representatives
(
    id   SERIAL PRIMARY KEY,
    name VARCHAR(255) UNIQUE NOT NULL
)
-- table_create_stores
CREATE TABLE IF NOT EXISTS stores
(
    id   SERIAL PRIMARY KEY,
    name VARCHAR(255) UNIQUE NOT NULL
)
-- table_create_products
CREATE TABLE IF NOT EXISTS products
(
    id       SERIAL PRIMARY KEY,
    name     VARCHAR(255)   NOT NULL,
    price    NUMERIC(10, 2) NOT NULL,
    store_id INT            NOT NULL REFERENCES stores (id),

    CONSTRAINT product_store_idx UNIQUE (store_id, name)
)
-- table_create_transactions
CREATE TABLE IF NOT EXISTS transactions
(
    id            VARCHAR(128) PRIMARY KEY,
    date          DATE NOT NULL,
    product_id    INT  NOT NULL REFERENCES products (id),
    store_id      INT  NOT NULL REFERENCES stores (id),
    client_id     INT  NOT NULL REFERENCES clients (id),
    sales_repr_id INT  NOT NULL REFERENCES sales_representatives (id)
)
-- table_create_transactions_temp
CREATE TABLE IF NOT EXISTS transactions_temp
(
    transaction_id            VARCHAR(128) PRIMARY KEY,
    transaction_date          DATE           NOT NULL,
    product_name              VARCHAR(255)   NOT NULL,
    price                     NUMERIC(10, 2) NOT NULL,
    store_name                VARCHAR(255)   NOT NULL,
    sales_representative_name VARCHAR(255)   NOT NULL,
    client_name               VARCHAR(255)   NOT NULL
)
`

const sqliteTables = `
-- table_create_clients
CREATE TABLE IF NOT EXISTS clients
(
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name VARCHAR(255) UNIQUE NOT NULL
)
-- table_create_sales_representatives
CREATE TABLE IF NOT EXISTS sales_representatives
(
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name VARCHAR(255) UNIQUE NOT NULL
)
-- table_create_stores
CREATE TABLE IF NOT EXISTS stores
(
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name VARCHAR(255) UNIQUE NOT NULL
)
-- table_create_products
CREATE TABLE IF NOT EXISTS products
(
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    name     VARCHAR(255)   NOT NULL,
    price    NUMERIC(10, 2) NOT NULL,
    store_id INTEGER        NOT NULL REFERENCES stores (id),

    CONSTRAINT product_store_idx UNIQUE (store_id, name)
)
-- table_create_transactions
CREATE TABLE IF NOT EXISTS transactions
(
    id            VARCHAR(128) PRIMARY KEY,
    date          DATE    NOT NULL,
    product_id    INTEGER NOT NULL REFERENCES products (id),
    store_id      INTEGER NOT NULL REFERENCES stores (id),
    client_id     INTEGER NOT NULL REFERENCES clients (id),
    sales_repr_id INTEGER NOT NULL REFERENCES sales_representatives (id)
)
-- table_create_transactions_temp
CREATE TABLE IF NOT EXISTS transactions_temp
(
    transaction_id            VARCHAR(128) PRIMARY KEY,
    transaction_date          DATE           NOT NULL,
    product_name              VARCHAR(255)   NOT NULL,
    price                     NUMERIC(10, 2) NOT NULL,
    store_name                VARCHAR(255)   NOT NULL,
    sales_representative_name VARCHAR(255)   NOT NULL,
    client_name               VARCHAR(255)   NOT NULL
)
`

const correctStaging = `
UPDATE transactions_temp
SET price = 4.50
WHERE product_name = 'cappuccino'`

// Dedup-insert bodies. Each one selects only rows absent from the target,
// and the dialect adds its conflict clause on top.
var loadBodies = []struct {
	key, target, body string
}{
	{KeyInsertStores, "stores (name)", `
SELECT DISTINCT t.store_name
FROM transactions_temp t
WHERE NOT EXISTS (
    SELECT 1 FROM stores s WHERE s.name = t.store_name
)`},
	{KeyInsertSalesReps, "sales_representatives (name)", `
SELECT DISTINCT t.sales_representative_name
FROM transactions_temp t
WHERE NOT EXISTS (
    SELECT 1 FROM sales_representatives sr WHERE sr.name = t.sales_representative_name
)`},
	{KeyInsertClients, "clients (name)", `
SELECT DISTINCT t.client_name
FROM transactions_temp t
WHERE NOT EXISTS (
    SELECT 1 FROM clients c WHERE c.name = t.client_name
)`},
	{KeyInsertProducts, "products (name, price, store_id)", `
SELECT DISTINCT t.product_name, t.price, s.id
FROM transactions_temp t
JOIN stores s ON t.store_name = s.name
WHERE NOT EXISTS (
    SELECT 1 FROM products p WHERE p.name = t.product_name AND p.store_id = s.id
)`},
	{KeyInsertTransactions, "transactions (id, date, product_id, store_id, client_id, sales_repr_id)", `
SELECT
    t.transaction_id,
    t.transaction_date,
    p.id  AS product_id,
    s.id  AS store_id,
    c.id  AS client_id,
    sr.id AS sales_repr_id
FROM transactions_temp t
JOIN stores s ON t.store_name = s.name
JOIN products p ON t.product_name = p.name AND p.store_id = s.id
JOIN clients c ON t.client_name = c.name
JOIN sales_representatives sr ON t.sales_representative_name = sr.name
WHERE NOT EXISTS (
    SELECT 1 FROM transactions x WHERE x.id = t.transaction_id
)`},
}

// Reports use named filters that are bound, never interpolated.
var reports = []Entry{
	{KeyGetCustomers, `
SELECT
    c.id   AS client_id,
    c.name AS client_name,
    t.date AS transaction_date
FROM clients c
    JOIN transactions t ON t.client_id = c.id
    JOIN stores s ON s.id = t.store_id
    JOIN products p ON p.id = t.product_id AND p.store_id = s.id
WHERE s.name = {store_name}
    AND p.name = {product_name}
    AND t.date =
      (SELECT MAX(date)
       FROM transactions t2
       WHERE t2.client_id = t.client_id
         AND t2.store_id = t.store_id)
ORDER BY c.id`},
	{KeyGetCustomersSort, `
WITH latest_trans AS
    (SELECT t.id,
            t.client_id,
            t.store_id,
            t.product_id,
            t.date,
            ROW_NUMBER() OVER (PARTITION BY t.client_id, t.store_id ORDER BY t.date DESC) AS rn
     FROM transactions t),

    total_spent AS
        (SELECT t.client_id,
                SUM(p.price) AS total_spent
         FROM transactions t
             JOIN products p ON t.product_id = p.id
         GROUP BY t.client_id
     )
SELECT c.id,
       c.name,
       lt.date,
       ts.total_spent AS total_spent
FROM latest_trans lt
    JOIN total_spent ts ON ts.client_id = lt.client_id
    JOIN clients c ON lt.client_id = c.id
    JOIN stores s ON lt.store_id = s.id
    JOIN products p ON lt.product_id = p.id
WHERE lt.rn = 1
  AND s.name = {store_name}
  AND p.name = {product_name}
ORDER BY total_spent DESC, c.id`},
	{KeyGetCustomersSortFast, `
WITH latest_trans AS
    (SELECT t.id,
            t.client_id,
            t.store_id,
            t.product_id,
            t.date,
            p.name AS product_name,
            SUM(p.price) OVER (PARTITION BY t.client_id) AS total_spent,
            ROW_NUMBER() OVER (PARTITION BY t.client_id, t.store_id ORDER BY t.date DESC) AS rn
     FROM transactions t
     JOIN products p ON t.product_id = p.id)

SELECT c.id,
       c.name,
       lt.date,
       lt.total_spent AS total_spent
FROM latest_trans lt
    JOIN clients c ON lt.client_id = c.id
    JOIN stores s ON lt.store_id = s.id
WHERE lt.rn = 1
  AND s.name = {store_name}
  AND lt.product_name = {product_name}
ORDER BY total_spent DESC, c.id`},
}

func postgresEntries() []Entry {
	entries := []Entry{
		{KeyCreateDatabase, "CREATE SCHEMA {}"},
		{KeyUseDatabase, "SET search_path TO {}"},
		{KeyDatabaseExists, "SELECT 1 FROM pg_namespace WHERE nspname = {name}"},
	}
	entries = append(entries, splitTables(pgTables)...)
	entries = append(entries,
		Entry{KeyInsertStaging, stagingInsert(Postgres)},
		Entry{KeyCorrectStaging, correctStaging},
	)
	for _, l := range loadBodies {
		entries = append(entries, Entry{l.key, "INSERT INTO " + l.target + l.body + "\nON CONFLICT DO NOTHING"})
	}
	return append(entries, reports...)
}

func sqliteEntries() []Entry {
	entries := splitTables(sqliteTables)
	entries = append(entries,
		Entry{KeyInsertStaging, stagingInsert(SQLite)},
		Entry{KeyCorrectStaging, correctStaging},
	)
	for _, l := range loadBodies {
		entries = append(entries, Entry{l.key, "INSERT OR IGNORE INTO " + l.target + l.body})
	}
	return append(entries, reports...)
}

func stagingInsert(d Dialect) string {
	ph := make([]string, 7)
	for i := range ph {
		ph[i] = d.Placeholder(i + 1)
	}
	return `
INSERT INTO transactions_temp
    (transaction_id, transaction_date, product_name, price, store_name, sales_representative_name, client_name)
VALUES (` + strings.Join(ph, ", ") + ")"
}

// splitTables cuts a DDL block on "-- key" marker lines.
func splitTables(block string) []Entry {
	var (
		entries []Entry
		key     string
		body    strings.Builder
	)
	flush := func() {
		if key != "" {
			entries = append(entries, Entry{key, strings.TrimSpace(body.String())})
		}
		body.Reset()
	}
	for _, line := range strings.Split(block, "\n") {
		if k, ok := strings.CutPrefix(line, "-- "); ok {
			flush()
			key = strings.TrimSpace(k)
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()
	return entries
}
