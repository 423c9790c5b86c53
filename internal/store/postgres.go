package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/estudorank/estudorank/internal/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore implements Store on top of a database/sql handle.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}
}

func quoteColumns(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// buildWhere renders filters with placeholders starting at $1.
func buildWhere(filters []Filter) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	for i, f := range filters {
		col := pq.QuoteIdentifier(f.Column)
		switch f.Op {
		case OpEq:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, i+1))
			args = append(args, f.Value)
		case OpIn:
			vals, ok := f.Value.([]string)
			if !ok {
				return "", nil, &errors.ValidationError{Field: f.Column, Message: "IN filter expects a list of strings"}
			}
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", col, i+1))
			args = append(args, pq.Array(vals))
		default:
			return "", nil, &errors.ValidationError{Field: f.Column, Message: fmt.Sprintf("unsupported operator %q", f.Op)}
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func buildOrder(orders []Order) string {
	if len(orders) == 0 {
		return ""
	}
	parts := make([]string, len(orders))
	for i, o := range orders {
		dir := "ASC"
		if o.Descending {
			dir = "DESC NULLS LAST"
		}
		parts[i] = pq.QuoteIdentifier(o.Column) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (s *PostgresStore) Select(ctx context.Context, q Query) (*Result, error) {
	if q.Table == "" {
		return nil, &errors.ValidationError{Field: "table", Message: "table name is required"}
	}

	result := &Result{Rows: []Row{}}
	if q.emptyIn() {
		if q.Count {
			var zero int64
			result.Count = &zero
		}
		return result, nil
	}

	where, args, err := buildWhere(q.Filters)
	if err != nil {
		return nil, err
	}
	table := pq.QuoteIdentifier(q.Table)

	if q.Count {
		var n int64
		countSQL := "SELECT COUNT(*) FROM " + table + where
		if err := s.db.QueryRowxContext(ctx, countSQL, args...).Scan(&n); err != nil {
			return nil, &errors.DatabaseError{Operation: "count " + q.Table, Err: err}
		}
		result.Count = &n
	}

	query := "SELECT " + quoteColumns(q.Columns) + " FROM " + table + where + buildOrder(q.Orders)
	if q.Limit >= 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + strconv.Itoa(q.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "select " + q.Table, Err: err}
	}
	defer rows.Close()

	dbTypes := columnTypes(rows)
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, &errors.DatabaseError{Operation: "scan " + q.Table, Err: err}
		}
		normalize(row, dbTypes)
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.DatabaseError{Operation: "iterate " + q.Table, Err: err}
	}

	return result, nil
}

func (s *PostgresStore) Insert(ctx context.Context, table string, values Row, returning ...string) (Row, error) {
	if table == "" {
		return nil, &errors.ValidationError{Field: "table", Message: "table name is required"}
	}
	if len(values) == 0 {
		return nil, &errors.ValidationError{Field: "values", Message: "nothing to insert"}
	}

	columns := make([]string, 0, len(values))
	for c := range values {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, c := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), quoteColumns(columns), strings.Join(placeholders, ", "))

	if len(returning) == 0 {
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, &errors.DatabaseError{Operation: "insert " + table, Err: err}
		}
		inserted := Row{}
		for k, v := range values {
			inserted[k] = v
		}
		return inserted, nil
	}

	query += " RETURNING " + quoteColumns(returning)
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "insert " + table, Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &errors.DatabaseError{Operation: "insert " + table, Err: err}
		}
		return nil, &errors.DatabaseError{Operation: "insert " + table, Err: sql.ErrNoRows}
	}
	row := Row{}
	if err := rows.MapScan(row); err != nil {
		return nil, &errors.DatabaseError{Operation: "scan " + table, Err: err}
	}
	normalize(row, columnTypes(rows))
	return row, nil
}

func (s *PostgresStore) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, &errors.ValidationError{Field: "filters", Message: "refusing to delete without a filter"}
	}
	where, args, err := buildWhere(filters)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(table)+where, args...)
	if err != nil {
		return 0, &errors.DatabaseError{Operation: "delete " + table, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &errors.DatabaseError{Operation: "delete " + table, Err: err}
	}
	return n, nil
}

func columnTypes(rows *sqlx.Rows) map[string]string {
	types := map[string]string{}
	cts, err := rows.ColumnTypes()
	if err != nil {
		return types
	}
	for _, ct := range cts {
		types[ct.Name()] = strings.ToUpper(ct.DatabaseTypeName())
	}
	return types
}

// normalize turns driver byte slices into Go values: NUMERIC becomes
// float64, everything else a string.
func normalize(row Row, dbTypes map[string]string) {
	for k, v := range row {
		b, ok := v.([]byte)
		if !ok {
			continue
		}
		switch dbTypes[k] {
		case "NUMERIC", "DECIMAL":
			if f, err := strconv.ParseFloat(string(b), 64); err == nil {
				row[k] = f
				continue
			}
		}
		row[k] = string(b)
	}
}
