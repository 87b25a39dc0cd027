package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Reference names a column that points at another record.
type Reference struct {
	table  string
	column string
}

var (
	ContractsByDriver          = Reference{"contracts", "driver_id"}
	ContractsByVehicle         = Reference{"contracts", "vehicle_id"}
	ContractPaymentsByDriver   = Reference{"contract_payments", "driver_id"}
	ContractPaymentsByContract = Reference{"contract_payments", "contract_id"}
	VehiclesByDriver           = Reference{"vehicles", "driver_id"}
	MaintenanceByVehicle       = Reference{"maintenance_records", "vehicle_id"}
	PaymentsByTenant           = Reference{"payments", "tenant_id"}
)

func (ref Reference) String() string { return ref.table + "." + ref.column }

// Table is the table holding the referring rows.
func (ref Reference) Table() string { return ref.table }

// Referencing returns the ids of the rows whose ref column points at id.
func (r *SQLiteRepository) Referencing(ctx context.Context, ref Reference, id string) ([]string, error) {
	return referencing(ctx, r.db, ref, id)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func referencing(ctx context.Context, q querier, ref Reference, id string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE %s = ? ORDER BY id`, ref.table, ref.column), id)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ref, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var rid string
		if err := rows.Scan(&rid); err != nil {
			return nil, fmt.Errorf("scan %s: %w", ref, err)
		}
		ids = append(ids, rid)
	}
	return ids, rows.Err()
}

// DeleteWithDependents removes the record id from table together with every
// row that refers to it through each of deps, in one transaction. It returns
// the removed dependent ids keyed by reference.
func (r *SQLiteRepository) DeleteWithDependents(ctx context.Context, table, id string, deps ...Reference) (map[Reference][]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete %s: %w", table, err)
	}
	defer tx.Rollback()

	removed := make(map[Reference][]string, len(deps))
	for _, ref := range deps {
		ids, err := referencing(ctx, tx, ref, id)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, ref.table, ref.column), id); err != nil {
			return nil, fmt.Errorf("delete %s: %w", ref, err)
		}
		removed[ref] = ids
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("delete %s: %w", table, err)
	} else if n == 0 {
		return nil, fmt.Errorf("delete %s: %w", table, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete %s: %w", table, err)
	}
	return removed, nil
}

// DeleteDetaching removes the record id from table and clears the ref column
// of every row pointing at it, in one transaction. It returns the detached ids.
func (r *SQLiteRepository) DeleteDetaching(ctx context.Context, table, id string, ref Reference, at time.Time) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete %s: %w", table, err)
	}
	defer tx.Rollback()

	ids, err := referencing(ctx, tx, ref, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s = '', updated_at = ? WHERE %s = ?`, ref.table, ref.column, ref.column),
		formatTime(at), id); err != nil {
		return nil, fmt.Errorf("detach %s: %w", ref, err)
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("delete %s: %w", table, err)
	} else if n == 0 {
		return nil, fmt.Errorf("delete %s: %w", table, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete %s: %w", table, err)
	}
	return ids, nil
}
