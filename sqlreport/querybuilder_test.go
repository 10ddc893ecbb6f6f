package main

import "testing"

func testSchema() map[string]map[string]bool {
	return map[string]map[string]bool{
		"employees": {"id": true, "name": true, "salary": true, "title": true},
		"sales":     {"id": true, "amount": true, "region": true},
	}
}

func TestBuildSelect_NoConditions(t *testing.T) {
	query, args, err := buildSelect("employees", []string{"name", "salary"}, nil, "", "", testSchema())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if query != "SELECT name, salary FROM employees" {
		t.Fatalf("query=%q", query)
	}
	if len(args) != 0 {
		t.Fatalf("args=%v", args)
	}
}

func TestBuildSelect_ConditionsAndSort(t *testing.T) {
	conds := []templateCondition{
		{Field: "salary", Operator: "greater_or_equal", Value: 80000},
		{Field: "name", Operator: "starts_with", Value: "D"},
	}
	query, args, err := buildSelect("employees", []string{"name"}, conds, "salary", "desc", testSchema())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := "SELECT name FROM employees WHERE salary >= ? AND name LIKE ? ORDER BY salary DESC"
	if query != want {
		t.Fatalf("query=%q, want %q", query, want)
	}
	if len(args) != 2 || args[1] != "D%" {
		t.Fatalf("args=%v", args)
	}
}

func TestBuildSelect_ContainsWrapsValue(t *testing.T) {
	conds := []templateCondition{{Field: "region", Operator: "contains", Value: "es"}}
	_, args, err := buildSelect("sales", []string{"amount"}, conds, "", "", testSchema())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if args[0] != "%es%" {
		t.Fatalf("args=%v, want %%es%%", args)
	}
}

func TestBuildSelect_RejectsUnknownIdentifiers(t *testing.T) {
	schema := testSchema()
	cases := []struct {
		name   string
		table  string
		fields []string
		conds  []templateCondition
		sortBy string
	}{
		{"table", "users", []string{"id"}, nil, ""},
		{"field", "employees", []string{"password"}, nil, ""},
		{"condition field", "employees", []string{"name"}, []templateCondition{{Field: "x", Operator: "equals", Value: 1}}, ""},
		{"operator", "employees", []string{"name"}, []templateCondition{{Field: "name", Operator: "regex", Value: "a"}}, ""},
		{"sort field", "employees", []string{"name"}, nil, "nope"},
		{"empty fields", "employees", nil, nil, ""},
		{"injection via field", "employees", []string{"name; DROP TABLE employees"}, nil, ""},
	}
	for _, tc := range cases {
		if _, _, err := buildSelect(tc.table, tc.fields, tc.conds, tc.sortBy, "", schema); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
