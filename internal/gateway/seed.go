package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Seed replaces the contents of each given table in one transaction.
// The schema must already exist (see Migrate).
func Seed(ctx context.Context, db *sql.DB, backend Backend, tables []*Table) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, t := range tables {
		if t == nil {
			continue
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+t.Kind.String()); err != nil {
			return fmt.Errorf("clear %s: %w", t.Kind, err)
		}
		cols := t.Kind.Schema().ColumnNames()
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx, insertQuery(t.Kind, cols, backend))
		if err != nil {
			return fmt.Errorf("prepare %s insert: %w", t.Kind, err)
		}
		for i, r := range t.Rows {
			args := make([]any, len(cols))
			for j, c := range cols {
				args[j] = sqlValue(r[c])
			}
			if _, err = stmt.ExecContext(ctx, args...); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("insert %s row %d: %w", t.Kind, i, err)
			}
		}
		_ = stmt.Close()
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func insertQuery(k Kind, cols []string, backend Backend) string {
	ph := make([]string, len(cols))
	for i := range cols {
		if backend == BackendPostgres {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		k.String(), strings.Join(cols, ", "), strings.Join(ph, ", "))
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(DateLayout)
	case int:
		return int64(x)
	default:
		return x
	}
}
