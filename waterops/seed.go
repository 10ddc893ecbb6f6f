package main

import (
	"context"
	_ "embed"

	"github.com/opsline/opsline-go/internal/seed"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFixture struct {
	Customers []seedCustomer `yaml:"customers"`
	Leaks     []seedLeak     `yaml:"leaks"`
}

type seedCustomer struct {
	Name        string        `yaml:"name"`
	Email       string        `yaml:"email"`
	Address     string        `yaml:"address"`
	MeterNumber string        `yaml:"meterNumber"`
	Readings    []seedReading `yaml:"readings"`
}

type seedReading struct {
	Gallons     float64 `yaml:"gallons"`
	ReadingDate string  `yaml:"readingDate"`
}

type seedLeak struct {
	Location    string `yaml:"location"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
}

// loadSeed fills the memory backend with demo data. Leaks go through the
// same pair insert the API uses, so every seeded leak has its alert.
func (api *waterOpsAPI) loadSeed(ctx context.Context) error {
	var fixture seedFixture
	if err := seed.Decode(seedYAML, &fixture); err != nil {
		return err
	}

	now := api.now().UTC()
	for _, sc := range fixture.Customers {
		created, err := api.store.InsertCustomer(ctx, customer{
			Name:        sc.Name,
			Email:       sc.Email,
			Address:     sc.Address,
			MeterNumber: sc.MeterNumber,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		for _, sr := range sc.Readings {
			if _, err := api.store.InsertReading(ctx, reading{
				CustomerID:  created.ID,
				Gallons:     sr.Gallons,
				ReadingDate: sr.ReadingDate,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}
	}

	for _, sl := range fixture.Leaks {
		_, _, err := api.store.InsertLeakWithAlert(ctx, leak{
			Location:     sl.Location,
			Severity:     sl.Severity,
			Status:       "reported",
			Description:  sl.Description,
			ReportedAt:   now,
			LastModified: now,
		}, func(leakID string) alert {
			severity := "warning"
			if sl.Severity == "critical" {
				severity = "critical"
			}
			return alert{
				LeakID:    leakID,
				Severity:  severity,
				Message:   "Leak reported at " + sl.Location,
				Status:    "open",
				CreatedAt: now,
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
