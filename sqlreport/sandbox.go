package main

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/opsline/opsline-go/internal/seed"
)

//go:embed seed.yaml
var seedYAML []byte

// sandboxSchema is the demo reporting schema. It is created on a
// read-write connection once at startup; queries afterwards run on a
// separate read-only connection.
const sandboxSchema = `
CREATE TABLE IF NOT EXISTS departments (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	location TEXT
);
CREATE TABLE IF NOT EXISTS employees (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	title TEXT,
	department_id INTEGER REFERENCES departments(id),
	salary REAL,
	hired_on TEXT
);
CREATE TABLE IF NOT EXISTS sales (
	id INTEGER PRIMARY KEY,
	employee_id INTEGER REFERENCES employees(id),
	amount REAL NOT NULL,
	region TEXT,
	sold_on TEXT
);
`

type sandboxFixture struct {
	Departments []struct {
		ID       int    `yaml:"id"`
		Name     string `yaml:"name"`
		Location string `yaml:"location"`
	} `yaml:"departments"`
	Employees []struct {
		ID           int     `yaml:"id"`
		Name         string  `yaml:"name"`
		Title        string  `yaml:"title"`
		DepartmentID int     `yaml:"departmentId"`
		Salary       float64 `yaml:"salary"`
		HiredOn      string  `yaml:"hiredOn"`
	} `yaml:"employees"`
	Sales []struct {
		ID         int     `yaml:"id"`
		EmployeeID int     `yaml:"employeeId"`
		Amount     float64 `yaml:"amount"`
		Region     string  `yaml:"region"`
		SoldOn     string  `yaml:"soldOn"`
	} `yaml:"sales"`
}

// setupSandbox creates the demo schema and loads the embedded fixture.
// It is idempotent: existing rows are cleared first so restarts always
// serve the same data set.
func setupSandbox(ctx context.Context, db *sql.DB) error {
	var fixture sandboxFixture
	if err := seed.Decode(seedYAML, &fixture); err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, sandboxSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	for _, table := range []string{"sales", "employees", "departments"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, d := range fixture.Departments {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO departments (id, name, location) VALUES (?, ?, ?)",
			d.ID, d.Name, d.Location); err != nil {
			return fmt.Errorf("insert department: %w", err)
		}
	}
	for _, e := range fixture.Employees {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO employees (id, name, title, department_id, salary, hired_on) VALUES (?, ?, ?, ?, ?, ?)",
			e.ID, e.Name, e.Title, e.DepartmentID, e.Salary, e.HiredOn); err != nil {
			return fmt.Errorf("insert employee: %w", err)
		}
	}
	for _, s := range fixture.Sales {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sales (id, employee_id, amount, region, sold_on) VALUES (?, ?, ?, ?, ?)",
			s.ID, s.EmployeeID, s.Amount, s.Region, s.SoldOn); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
	}

	return tx.Commit()
}
