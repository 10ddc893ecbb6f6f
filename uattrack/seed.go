package main

import (
	_ "embed"
	"strings"

	"github.com/opsline/opsline-go/internal/seed"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFixture struct {
	Projects []seedProject `yaml:"projects"`
}

type seedProject struct {
	Name           string              `yaml:"name"`
	Client         string              `yaml:"client"`
	Status         string              `yaml:"status"`
	TotalBudget    float64             `yaml:"totalBudget"`
	TotalSpent     float64             `yaml:"totalSpent"`
	StartDate      string              `yaml:"startDate"`
	EndDate        string              `yaml:"endDate"`
	TestCases      []seedTestCase      `yaml:"testCases"`
	Defects        []seedDefect        `yaml:"defects"`
	ChangeRequests []seedChangeRequest `yaml:"changeRequests"`
	Risks          []seedRisk          `yaml:"risks"`
}

type seedTestCase struct {
	Title    string `yaml:"title"`
	Status   string `yaml:"status"`
	Assignee string `yaml:"assignee"`
}

type seedDefect struct {
	Severity    string `yaml:"severity"`
	Status      string `yaml:"status"`
	Description string `yaml:"description"`
}

type seedChangeRequest struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
}

type seedRisk struct {
	Description string `yaml:"description"`
	Probability int    `yaml:"probability"`
	Impact      int    `yaml:"impact"`
	Owner       string `yaml:"owner"`
}

func (api *uatTrackAPI) loadSeed() error {
	var fixture seedFixture
	if err := seed.Decode(seedYAML, &fixture); err != nil {
		return err
	}

	now := api.now().UTC()
	for _, sp := range fixture.Projects {
		status := strings.TrimSpace(sp.Status)
		if status == "" {
			status = "planning"
		}
		created := api.projects.Insert(func(id string) project {
			return project{
				ID:           id,
				Name:         sp.Name,
				Client:       sp.Client,
				Status:       status,
				TotalBudget:  sp.TotalBudget,
				TotalSpent:   sp.TotalSpent,
				StartDate:    sp.StartDate,
				EndDate:      sp.EndDate,
				CreatedAt:    now,
				LastModified: now,
			}
		})

		for _, tc := range sp.TestCases {
			tcStatus := strings.TrimSpace(tc.Status)
			if tcStatus == "" {
				tcStatus = "pending"
			}
			api.testCases.Insert(func(id string) testCase {
				seeded := testCase{
					ID:        id,
					ProjectID: created.ID,
					Title:     tc.Title,
					Status:    tcStatus,
					Assignee:  tc.Assignee,
				}
				switch tcStatus {
				case "passed", "failed", "blocked":
					executed := now
					seeded.ExecutedAt = &executed
				}
				return seeded
			})
		}
		for _, d := range sp.Defects {
			dStatus := strings.TrimSpace(d.Status)
			if dStatus == "" {
				dStatus = "open"
			}
			api.defects.Insert(func(id string) defect {
				return defect{
					ID:          id,
					ProjectID:   created.ID,
					Severity:    d.Severity,
					Status:      dStatus,
					Description: d.Description,
				}
			})
		}
		for _, cr := range sp.ChangeRequests {
			crStatus := strings.TrimSpace(cr.Status)
			if crStatus == "" {
				crStatus = "submitted"
			}
			api.changeRequests.Insert(func(id string) changeRequest {
				return changeRequest{
					ID:          id,
					ProjectID:   created.ID,
					Title:       cr.Title,
					Description: cr.Description,
					Status:      crStatus,
					RequestDate: now,
				}
			})
		}
		for _, rk := range sp.Risks {
			api.risks.Insert(func(id string) projectRisk {
				return projectRisk{
					ID:          id,
					ProjectID:   created.ID,
					Description: rk.Description,
					Probability: rk.Probability,
					Impact:      rk.Impact,
					RiskScore:   rk.Probability * rk.Impact,
					Owner:       rk.Owner,
				}
			})
		}
	}
	return nil
}
