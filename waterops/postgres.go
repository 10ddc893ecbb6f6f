package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// postgresStorage keeps the same PREFIX-NNN id scheme as the memory
// backend, allocated from per-entity sequences inside the insert
// statement.
type postgresStorage struct {
	db *sql.DB
}

func newPostgresStorage(db *sql.DB) *postgresStorage {
	return &postgresStorage{db: db}
}

const waterSchema = `
CREATE SEQUENCE IF NOT EXISTS waterops_customer_seq;
CREATE SEQUENCE IF NOT EXISTS waterops_reading_seq;
CREATE SEQUENCE IF NOT EXISTS waterops_leak_seq;
CREATE SEQUENCE IF NOT EXISTS waterops_alert_seq;
CREATE SEQUENCE IF NOT EXISTS waterops_work_order_seq;

CREATE TABLE IF NOT EXISTS waterops_customers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	meter_number TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS waterops_readings (
	id TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	gallons DOUBLE PRECISION NOT NULL,
	reading_date TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS waterops_leaks (
	id TEXT PRIMARY KEY,
	location TEXT NOT NULL,
	severity TEXT NOT NULL,
	status TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	reported_at TIMESTAMPTZ NOT NULL,
	last_modified TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS waterops_alerts (
	id TEXT PRIMARY KEY,
	leak_id TEXT NOT NULL,
	severity TEXT NOT NULL,
	message TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS waterops_work_orders (
	id TEXT PRIMARY KEY,
	leak_id TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	last_modified TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS waterops_users (
	username TEXT PRIMARY KEY,
	password_hash BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

func (s *postgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, waterSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *postgresStorage) InsertCustomer(ctx context.Context, c customer) (customer, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO waterops_customers (id, name, email, address, meter_number, created_at)
		VALUES ('CUST-' || lpad(nextval('waterops_customer_seq')::text, 3, '0'), $1, $2, $3, $4, $5)
		RETURNING id`,
		c.Name, c.Email, c.Address, c.MeterNumber, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

func (s *postgresStorage) GetCustomer(ctx context.Context, id string) (customer, bool, error) {
	var c customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, address, meter_number, created_at
		FROM waterops_customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.MeterNumber, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return customer{}, false, nil
	}
	if err != nil {
		return customer{}, false, fmt.Errorf("get customer: %w", err)
	}
	return c, true, nil
}

func (s *postgresStorage) ListCustomers(ctx context.Context) ([]customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, address, meter_number, created_at
		FROM waterops_customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	list := []customer{}
	for rows.Next() {
		var c customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.MeterNumber, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (s *postgresStorage) UpdateCustomer(ctx context.Context, id string, apply func(customer) customer) (customer, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return customer{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var c customer
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, email, address, meter_number, created_at
		FROM waterops_customers WHERE id = $1 FOR UPDATE`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.MeterNumber, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return customer{}, false, nil
	}
	if err != nil {
		return customer{}, false, fmt.Errorf("lock customer: %w", err)
	}

	c = apply(c)
	if _, err := tx.ExecContext(ctx, `
		UPDATE waterops_customers SET name = $2, email = $3, address = $4, meter_number = $5
		WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Address, c.MeterNumber); err != nil {
		return customer{}, false, fmt.Errorf("update customer: %w", err)
	}
	return c, true, tx.Commit()
}

func (s *postgresStorage) InsertReading(ctx context.Context, rd reading) (reading, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO waterops_readings (id, customer_id, gallons, reading_date, created_at)
		VALUES ('READ-' || lpad(nextval('waterops_reading_seq')::text, 3, '0'), $1, $2, $3, $4)
		RETURNING id`,
		rd.CustomerID, rd.Gallons, rd.ReadingDate, rd.CreatedAt).Scan(&rd.ID)
	if err != nil {
		return reading{}, fmt.Errorf("insert reading: %w", err)
	}
	return rd, nil
}

func (s *postgresStorage) ListReadings(ctx context.Context) ([]reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, gallons, reading_date, created_at
		FROM waterops_readings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	list := []reading{}
	for rows.Next() {
		var rd reading
		if err := rows.Scan(&rd.ID, &rd.CustomerID, &rd.Gallons, &rd.ReadingDate, &rd.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rd)
	}
	return list, rows.Err()
}

func (s *postgresStorage) InsertLeakWithAlert(ctx context.Context, lk leak, buildAlert func(leakID string) alert) (leak, alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return leak{}, alert{}, err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO waterops_leaks (id, location, severity, status, description, reported_at, last_modified)
		VALUES ('LEAK-' || lpad(nextval('waterops_leak_seq')::text, 3, '0'), $1, $2, $3, $4, $5, $6)
		RETURNING id`,
		lk.Location, lk.Severity, lk.Status, lk.Description, lk.ReportedAt, lk.LastModified).Scan(&lk.ID)
	if err != nil {
		return leak{}, alert{}, fmt.Errorf("insert leak: %w", err)
	}

	companion := buildAlert(lk.ID)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO waterops_alerts (id, leak_id, severity, message, status, created_at)
		VALUES ('ALRT-' || lpad(nextval('waterops_alert_seq')::text, 3, '0'), $1, $2, $3, $4, $5)
		RETURNING id`,
		companion.LeakID, companion.Severity, companion.Message, companion.Status, companion.CreatedAt).Scan(&companion.ID)
	if err != nil {
		return leak{}, alert{}, fmt.Errorf("insert alert: %w", err)
	}

	return lk, companion, tx.Commit()
}

func (s *postgresStorage) GetLeak(ctx context.Context, id string) (leak, bool, error) {
	var lk leak
	err := s.db.QueryRowContext(ctx, `
		SELECT id, location, severity, status, description, reported_at, last_modified
		FROM waterops_leaks WHERE id = $1`, id).
		Scan(&lk.ID, &lk.Location, &lk.Severity, &lk.Status, &lk.Description, &lk.ReportedAt, &lk.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return leak{}, false, nil
	}
	if err != nil {
		return leak{}, false, fmt.Errorf("get leak: %w", err)
	}
	return lk, true, nil
}

func (s *postgresStorage) ListLeaks(ctx context.Context) ([]leak, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location, severity, status, description, reported_at, last_modified
		FROM waterops_leaks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list leaks: %w", err)
	}
	defer rows.Close()

	list := []leak{}
	for rows.Next() {
		var lk leak
		if err := rows.Scan(&lk.ID, &lk.Location, &lk.Severity, &lk.Status, &lk.Description, &lk.ReportedAt, &lk.LastModified); err != nil {
			return nil, err
		}
		list = append(list, lk)
	}
	return list, rows.Err()
}

func (s *postgresStorage) UpdateLeak(ctx context.Context, id string, apply func(leak) leak) (leak, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return leak{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var lk leak
	err = tx.QueryRowContext(ctx, `
		SELECT id, location, severity, status, description, reported_at, last_modified
		FROM waterops_leaks WHERE id = $1 FOR UPDATE`, id).
		Scan(&lk.ID, &lk.Location, &lk.Severity, &lk.Status, &lk.Description, &lk.ReportedAt, &lk.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return leak{}, false, nil
	}
	if err != nil {
		return leak{}, false, fmt.Errorf("lock leak: %w", err)
	}

	lk = apply(lk)
	if _, err := tx.ExecContext(ctx, `
		UPDATE waterops_leaks SET location = $2, severity = $3, status = $4, description = $5, last_modified = $6
		WHERE id = $1`,
		lk.ID, lk.Location, lk.Severity, lk.Status, lk.Description, lk.LastModified); err != nil {
		return leak{}, false, fmt.Errorf("update leak: %w", err)
	}
	return lk, true, tx.Commit()
}

func (s *postgresStorage) ListAlerts(ctx context.Context) ([]alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, leak_id, severity, message, status, created_at
		FROM waterops_alerts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	list := []alert{}
	for rows.Next() {
		var a alert
		if err := rows.Scan(&a.ID, &a.LeakID, &a.Severity, &a.Message, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (s *postgresStorage) UpdateAlert(ctx context.Context, id string, apply func(alert) alert) (alert, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return alert{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var a alert
	err = tx.QueryRowContext(ctx, `
		SELECT id, leak_id, severity, message, status, created_at
		FROM waterops_alerts WHERE id = $1 FOR UPDATE`, id).
		Scan(&a.ID, &a.LeakID, &a.Severity, &a.Message, &a.Status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return alert{}, false, nil
	}
	if err != nil {
		return alert{}, false, fmt.Errorf("lock alert: %w", err)
	}

	a = apply(a)
	if _, err := tx.ExecContext(ctx, `
		UPDATE waterops_alerts SET severity = $2, message = $3, status = $4
		WHERE id = $1`,
		a.ID, a.Severity, a.Message, a.Status); err != nil {
		return alert{}, false, fmt.Errorf("update alert: %w", err)
	}
	return a, true, tx.Commit()
}

func (s *postgresStorage) InsertWorkOrder(ctx context.Context, wo workOrder) (workOrder, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO waterops_work_orders (id, leak_id, description, status, created_at, last_modified)
		VALUES ('WO-' || lpad(nextval('waterops_work_order_seq')::text, 3, '0'), $1, $2, $3, $4, $5)
		RETURNING id`,
		wo.LeakID, wo.Description, wo.Status, wo.CreatedAt, wo.LastModified).Scan(&wo.ID)
	if err != nil {
		return workOrder{}, fmt.Errorf("insert work order: %w", err)
	}
	return wo, nil
}

func (s *postgresStorage) ListWorkOrders(ctx context.Context) ([]workOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, leak_id, description, status, created_at, last_modified
		FROM waterops_work_orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()

	list := []workOrder{}
	for rows.Next() {
		var wo workOrder
		if err := rows.Scan(&wo.ID, &wo.LeakID, &wo.Description, &wo.Status, &wo.CreatedAt, &wo.LastModified); err != nil {
			return nil, err
		}
		list = append(list, wo)
	}
	return list, rows.Err()
}

func (s *postgresStorage) UpdateWorkOrder(ctx context.Context, id string, apply func(workOrder) workOrder) (workOrder, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return workOrder{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var wo workOrder
	err = tx.QueryRowContext(ctx, `
		SELECT id, leak_id, description, status, created_at, last_modified
		FROM waterops_work_orders WHERE id = $1 FOR UPDATE`, id).
		Scan(&wo.ID, &wo.LeakID, &wo.Description, &wo.Status, &wo.CreatedAt, &wo.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return workOrder{}, false, nil
	}
	if err != nil {
		return workOrder{}, false, fmt.Errorf("lock work order: %w", err)
	}

	wo = apply(wo)
	if _, err := tx.ExecContext(ctx, `
		UPDATE waterops_work_orders SET description = $2, status = $3, last_modified = $4
		WHERE id = $1`,
		wo.ID, wo.Description, wo.Status, wo.LastModified); err != nil {
		return workOrder{}, false, fmt.Errorf("update work order: %w", err)
	}
	return wo, true, tx.Commit()
}

func (s *postgresStorage) CreateUser(ctx context.Context, u user) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO waterops_users (username, password_hash, created_at)
		VALUES ($1, $2, $3)`,
		u.Username, u.PasswordHash, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *postgresStorage) GetUser(ctx context.Context, username string) (user, bool, error) {
	var u user
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, created_at
		FROM waterops_users WHERE username = $1`, username).
		Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user{}, false, nil
	}
	if err != nil {
		return user{}, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}
