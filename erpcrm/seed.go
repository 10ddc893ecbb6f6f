package main

import (
	_ "embed"
	"strings"

	"github.com/opsline/opsline-go/internal/seed"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFixture struct {
	Customers []seedCustomer      `yaml:"customers"`
	Inventory []seedInventoryItem `yaml:"inventory"`
}

type seedCustomer struct {
	Company string       `yaml:"company"`
	Contact string       `yaml:"contact"`
	Email   string       `yaml:"email"`
	Status  string       `yaml:"status"`
	Tickets []seedTicket `yaml:"tickets"`
}

type seedTicket struct {
	Subject  string `yaml:"subject"`
	Priority string `yaml:"priority"`
	Status   string `yaml:"status"`
}

type seedInventoryItem struct {
	SKU          string `yaml:"sku"`
	Name         string `yaml:"name"`
	Quantity     int    `yaml:"quantity"`
	ReorderLevel int    `yaml:"reorderLevel"`
}

func (api *erpcrmAPI) loadSeed() error {
	var fixture seedFixture
	if err := seed.Decode(seedYAML, &fixture); err != nil {
		return err
	}

	now := api.now().UTC()
	for _, sc := range fixture.Customers {
		status := strings.TrimSpace(sc.Status)
		if status == "" {
			status = "active"
		}
		created := api.customers.Insert(func(id string) customer {
			return customer{
				ID:        id,
				Company:   sc.Company,
				Contact:   sc.Contact,
				Email:     sc.Email,
				Status:    status,
				CreatedAt: now,
			}
		})

		for _, st := range sc.Tickets {
			priority := strings.TrimSpace(st.Priority)
			if priority == "" {
				priority = "medium"
			}
			status := strings.TrimSpace(st.Status)
			if status == "" {
				status = "open"
			}
			tk := api.tickets.Insert(func(id string) ticket {
				return ticket{
					ID:           id,
					CustomerID:   created.ID,
					Subject:      st.Subject,
					Priority:     priority,
					Status:       status,
					CreatedAt:    now,
					LastModified: now,
				}
			})
			if tk.Priority == "high" && tk.Status == "open" {
				api.escalateTicket(tk)
			}
		}
	}

	for _, si := range fixture.Inventory {
		api.inventory.Insert(func(id string) inventoryItem {
			return inventoryItem{
				ID:           id,
				SKU:          si.SKU,
				Name:         si.Name,
				Quantity:     si.Quantity,
				ReorderLevel: si.ReorderLevel,
			}
		})
	}
	return nil
}
