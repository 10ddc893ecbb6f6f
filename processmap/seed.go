package main

import (
	_ "embed"
	"strings"

	"github.com/opsline/opsline-go/internal/seed"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFixture struct {
	Processes []seedProcess `yaml:"processes"`
}

type seedProcess struct {
	Name        string       `yaml:"name"`
	Category    string       `yaml:"category"`
	Department  string       `yaml:"department"`
	Owner       string       `yaml:"owner"`
	Description string       `yaml:"description"`
	RiskLevel   string       `yaml:"riskLevel"`
	Status      string       `yaml:"status"`
	Steps       []seedStep   `yaml:"steps"`
	Metrics     []seedMetric `yaml:"metrics"`
	Risks       []seedRisk   `yaml:"risks"`
}

type seedStep struct {
	StepNumber    int      `yaml:"stepNumber"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	EstimatedTime float64  `yaml:"estimatedTime"`
	Systems       []string `yaml:"systems"`
	Required      bool     `yaml:"required"`
}

type seedMetric struct {
	Name    string  `yaml:"name"`
	Current float64 `yaml:"current"`
	Target  float64 `yaml:"target"`
	Unit    string  `yaml:"unit"`
}

type seedRisk struct {
	Description string `yaml:"description"`
	Probability int    `yaml:"probability"`
	Impact      int    `yaml:"impact"`
	Mitigation  string `yaml:"mitigation"`
}

func (api *processMapAPI) loadSeed() error {
	var fixture seedFixture
	if err := seed.Decode(seedYAML, &fixture); err != nil {
		return err
	}

	now := api.now().UTC()
	for _, sp := range fixture.Processes {
		status := strings.TrimSpace(sp.Status)
		if status == "" {
			status = "draft"
		}
		created := api.processes.Insert(func(id string) process {
			return process{
				ID:           id,
				Name:         sp.Name,
				Category:     sp.Category,
				Department:   sp.Department,
				Owner:        sp.Owner,
				Description:  sp.Description,
				RiskLevel:    sp.RiskLevel,
				Status:       status,
				Version:      "1.0",
				CreatedAt:    now,
				LastModified: now,
			}
		})

		for _, ss := range sp.Steps {
			api.steps.Insert(func(id string) processStep {
				return processStep{
					ID:            id,
					ProcessID:     created.ID,
					StepNumber:    ss.StepNumber,
					Name:          ss.Name,
					Description:   ss.Description,
					EstimatedTime: ss.EstimatedTime,
					Systems:       ss.Systems,
					Required:      ss.Required,
				}
			})
		}
		for _, sm := range sp.Metrics {
			api.metrics.Insert(func(id string) processMetric {
				return processMetric{
					ID:        id,
					ProcessID: created.ID,
					Name:      sm.Name,
					Current:   sm.Current,
					Target:    sm.Target,
					Unit:      sm.Unit,
				}
			})
		}
		for _, sr := range sp.Risks {
			api.risks.Insert(func(id string) processRisk {
				return processRisk{
					ID:          id,
					ProcessID:   created.ID,
					Description: sr.Description,
					Probability: sr.Probability,
					Impact:      sr.Impact,
					RiskScore:   sr.Probability * sr.Impact,
					Mitigation:  sr.Mitigation,
				}
			})
		}
	}
	return nil
}
