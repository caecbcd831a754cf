// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package storage

import (
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/signal18/pricemedian/series"
)

type SQLiteStorage struct {
	path string
	db   *sqlx.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	st := &SQLiteStorage{
		path: path,
	}

	if err := st.open(); err != nil {
		return nil, err
	}

	return st, nil
}

func (st *SQLiteStorage) Close() error {
	return st.db.Close()
}

func (st *SQLiteStorage) open() error {
	var err error

	create := false
	if _, err := os.Stat(st.path); os.IsNotExist(err) {
		create = true
	}

	st.db, err = sqlx.Open("sqlite3", st.path)
	if err != nil {
		return errors.Trace(err)
	}
	// sqlite serializes writers anyway
	st.db.SetMaxOpenConns(1)

	if create {
		if err := st.db.Ping(); err != nil {
			return errors.Annotatef(err, "open %s", st.path)
		}
		if err := st.create(); err != nil {
			return err
		}
	}

	return errors.Trace(st.db.Ping())
}

func (st *SQLiteStorage) create() error {
	schema := `CREATE TABLE IF NOT EXISTS medians (
		symbol text not null,
		day text not null,
		median real,
		count int default 0,
		mean real,
		stddev real,
		min real,
		max real,
		updated TEXT default CURRENT_TIMESTAMP,
		PRIMARY KEY (symbol, day)
	);`

	if _, err := st.db.Exec(schema); err != nil {
		return errors.Annotate(err, "create schema")
	}

	log.WithFields(log.Fields{"path": st.path}).Info("Created median history database")
	return nil
}

var (
	storeMedian = "INSERT INTO medians (" +
		"symbol, day, median, count, mean, stddev, min, max, updated" +
		") VALUES (" +
		":symbol, :day, :median, :count, :mean, :stddev, :min, :max, :updated" +
		") ON CONFLICT(symbol, day) DO UPDATE SET " +
		"median = excluded.median, " +
		"count = excluded.count, " +
		"mean = excluded.mean, " +
		"stddev = excluded.stddev, " +
		"min = excluded.min, " +
		"max = excluded.max, " +
		"updated = excluded.updated"
)

// Store upserts one row per date in a single transaction. A later run for
// the same symbol and date replaces the earlier row.
func (st *SQLiteStorage) Store(symbol string, results []series.Result) error {
	if symbol == "" {
		return errors.NotValidf("empty symbol")
	}

	tx, err := st.db.Beginx()
	if err != nil {
		return errors.Trace(err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range results {
		rec := NewRecord(symbol, r)
		rec.Updated = now
		if _, err := tx.NamedExec(storeMedian, rec); err != nil {
			tx.Rollback()
			return errors.Annotatef(err, "store %s %s", symbol, rec.Day)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Trace(err)
	}
	log.WithFields(log.Fields{"symbol": symbol, "rows": len(results)}).Debug("Stored medians")
	return nil
}

func (st *SQLiteStorage) Search(q Query) ([]Record, error) {
	sql, values := st.getSQLQuery(q)
	log.WithFields(log.Fields{"query": sql, "values": values}).Debug("SQL query")

	results := make([]Record, 0)
	if err := st.db.Select(&results, sql, values...); err != nil {
		return nil, errors.Trace(err)
	}
	if len(results) == 0 {
		return results, ErrNoRowsFound
	}
	return results, nil
}

// sqlite stores NaN as NULL, read it back as NaN
var selectColumns = "symbol, day, " +
	"IFNULL(median, 'NaN') AS median, " +
	"count, " +
	"IFNULL(mean, 'NaN') AS mean, " +
	"IFNULL(stddev, 'NaN') AS stddev, " +
	"IFNULL(min, 'NaN') AS min, " +
	"IFNULL(max, 'NaN') AS max, " +
	"updated"

func (st *SQLiteStorage) getSQLQuery(q Query) (query string, values []interface{}) {
	query = "SELECT " + selectColumns + " FROM medians"

	queries := make([]string, 0)
	if q.Symbol != "" {
		queries = append(queries, "symbol = ?")
		values = append(values, q.Symbol)
	}
	if q.From != "" {
		queries = append(queries, "day >= ?")
		values = append(values, q.From)
	}
	if q.Until != "" {
		queries = append(queries, "day <= ?")
		values = append(values, q.Until)
	}
	if len(queries) > 0 {
		query += " WHERE " + strings.Join(queries, " AND ")
	}

	query += " ORDER BY symbol, day"

	if q.Limit > 0 {
		query += " LIMIT ?"
		values = append(values, q.Limit)
	}
	return query, values
}

func (st *SQLiteStorage) Symbols() ([]string, error) {
	symbols := make([]string, 0)
	if err := st.db.Select(&symbols, "SELECT DISTINCT symbol FROM medians ORDER BY symbol"); err != nil {
		return nil, errors.Trace(err)
	}
	return symbols, nil
}
