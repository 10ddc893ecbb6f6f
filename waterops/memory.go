package main

import (
	"context"
	"sync"

	"github.com/opsline/opsline-go/internal/memstore"
)

// memoryStorage is the default backend: one entity store per type plus a
// username map for auth.
type memoryStorage struct {
	customers  *memstore.Store[customer]
	readings   *memstore.Store[reading]
	leaks      *memstore.Store[leak]
	alerts     *memstore.Store[alert]
	workOrders *memstore.Store[workOrder]

	mu    sync.Mutex
	users map[string]user
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		customers:  memstore.New("CUST", func(c customer) string { return c.ID }),
		readings:   memstore.New("READ", func(rd reading) string { return rd.ID }),
		leaks:      memstore.New("LEAK", func(lk leak) string { return lk.ID }),
		alerts:     memstore.New("ALRT", func(a alert) string { return a.ID }),
		workOrders: memstore.New("WO", func(wo workOrder) string { return wo.ID }),
		users:      make(map[string]user),
	}
}

func (s *memoryStorage) InsertCustomer(_ context.Context, c customer) (customer, error) {
	return s.customers.Insert(func(id string) customer {
		c.ID = id
		return c
	}), nil
}

func (s *memoryStorage) GetCustomer(_ context.Context, id string) (customer, bool, error) {
	c, ok := s.customers.Get(id)
	return c, ok, nil
}

func (s *memoryStorage) ListCustomers(_ context.Context) ([]customer, error) {
	return s.customers.List(nil), nil
}

func (s *memoryStorage) UpdateCustomer(_ context.Context, id string, apply func(customer) customer) (customer, bool, error) {
	c, ok := s.customers.Update(id, apply)
	return c, ok, nil
}

func (s *memoryStorage) InsertReading(_ context.Context, rd reading) (reading, error) {
	return s.readings.Insert(func(id string) reading {
		rd.ID = id
		return rd
	}), nil
}

func (s *memoryStorage) ListReadings(_ context.Context) ([]reading, error) {
	return s.readings.List(nil), nil
}

func (s *memoryStorage) InsertLeakWithAlert(_ context.Context, lk leak, buildAlert func(leakID string) alert) (leak, alert, error) {
	created := s.leaks.Insert(func(id string) leak {
		lk.ID = id
		return lk
	})
	companion := buildAlert(created.ID)
	companion = s.alerts.Insert(func(id string) alert {
		companion.ID = id
		return companion
	})
	return created, companion, nil
}

func (s *memoryStorage) GetLeak(_ context.Context, id string) (leak, bool, error) {
	lk, ok := s.leaks.Get(id)
	return lk, ok, nil
}

func (s *memoryStorage) ListLeaks(_ context.Context) ([]leak, error) {
	return s.leaks.List(nil), nil
}

func (s *memoryStorage) UpdateLeak(_ context.Context, id string, apply func(leak) leak) (leak, bool, error) {
	lk, ok := s.leaks.Update(id, apply)
	return lk, ok, nil
}

func (s *memoryStorage) ListAlerts(_ context.Context) ([]alert, error) {
	return s.alerts.List(nil), nil
}

func (s *memoryStorage) UpdateAlert(_ context.Context, id string, apply func(alert) alert) (alert, bool, error) {
	a, ok := s.alerts.Update(id, apply)
	return a, ok, nil
}

func (s *memoryStorage) InsertWorkOrder(_ context.Context, wo workOrder) (workOrder, error) {
	return s.workOrders.Insert(func(id string) workOrder {
		wo.ID = id
		return wo
	}), nil
}

func (s *memoryStorage) ListWorkOrders(_ context.Context) ([]workOrder, error) {
	return s.workOrders.List(nil), nil
}

func (s *memoryStorage) UpdateWorkOrder(_ context.Context, id string, apply func(workOrder) workOrder) (workOrder, bool, error) {
	wo, ok := s.workOrders.Update(id, apply)
	return wo, ok, nil
}

func (s *memoryStorage) CreateUser(_ context.Context, u user) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.Username]; exists {
		return errUsernameTaken
	}
	s.users[u.Username] = u
	return nil
}

func (s *memoryStorage) GetUser(_ context.Context, username string) (user, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	return u, ok, nil
}
