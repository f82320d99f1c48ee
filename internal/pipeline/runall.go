package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultQuestion = "Resumo executivo da entrega mais recente."

// ClientSpec is one entry of the clients file.
type ClientSpec struct {
	Client    string `yaml:"client" json:"client"`
	Rules     string `yaml:"rules" json:"rules"`
	Q         string `yaml:"q" json:"q"`
	Type      string `yaml:"type" json:"type"`
	Take      int    `yaml:"take" json:"take"`
	GoogleCSV string `yaml:"google_csv" json:"google_csv"`
	MetaCSV   string `yaml:"meta_csv" json:"meta_csv"`
}

// LoadClients reads a YAML or JSON list of clients.
func LoadClients(path string) ([]ClientSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cs []ClientSpec
	if err := yaml.Unmarshal(b, &cs); err != nil {
		return nil, fmt.Errorf("clients %s: %w", path, err)
	}
	return cs, nil
}

type Failure struct {
	Client string `json:"client"`
	Err    string `json:"error"`
}

type RunAllResult struct {
	OK     []string    `json:"ok"`
	Failed []Failure   `json:"failed"`
	Runs   []RunResult `json:"runs"`
}

// RunAll runs every client in order. One failure does not stop the rest.
func (p *Pipeline) RunAll(ctx context.Context, clients []ClientSpec) RunAllResult {
	var out RunAllResult
	for _, c := range clients {
		if ctx.Err() != nil {
			out.Failed = append(out.Failed, Failure{Client: c.Client, Err: ctx.Err().Error()})
			continue
		}
		q := c.Q
		if q == "" {
			q = defaultQuestion
		}
		res, err := p.Run(ctx, RunRequest{
			Client:    c.Client,
			Question:  q,
			Type:      c.Type,
			Take:      c.Take,
			Rules:     c.Rules,
			GoogleCSV: c.GoogleCSV,
			MetaCSV:   c.MetaCSV,
		})
		if err != nil {
			p.log().Error("client failed", slog.String("client", c.Client), slog.Any("err", err))
			out.Failed = append(out.Failed, Failure{Client: c.Client, Err: err.Error()})
			continue
		}
		out.OK = append(out.OK, c.Client)
		out.Runs = append(out.Runs, res)
	}
	return out
}
