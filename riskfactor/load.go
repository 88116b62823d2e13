package riskfactor

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// LOADING - From a store or a file
// =============================================================================

// Source is persistent storage of observations and contingent events.
type Source interface {
	ListObservations(ctx context.Context) ([]Observation, error)
	ListContingentEvents(ctx context.Context) ([]ContingentEvent, error)
}

// Load builds an observer from everything the source holds.
func Load(ctx context.Context, src Source) (*Observer, error) {
	obs, err := src.ListObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	evs, err := src.ListContingentEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load contingent events: %w", err)
	}

	o := NewObserver()
	o.AddObservations(obs)
	if err := o.AddEvents(evs); err != nil {
		return nil, err
	}
	return o, nil
}

// fileDocument is the on-disk layout. JSON documents decode through the
// same YAML decoder.
type fileDocument struct {
	Observations []struct {
		Series string `yaml:"series"`
		At     string `yaml:"at"`
		Value  string `yaml:"value"`
	} `yaml:"observations"`
	Events []struct {
		ContractID string `yaml:"contract_id"`
		At         string `yaml:"at"`
		Type       string `yaml:"type"`
		Currency   string `yaml:"currency"`
	} `yaml:"events"`
}

// Parse reads an observations document:
//
//	observations:
//	  - {series: USD.SOFR, at: 2024-01-01, value: 0.05}
//	events:
//	  - {contract_id: loan-1, at: 2024-06-01, type: PP}
func Parse(data []byte) (*Observer, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse observations: %w", err)
	}

	o := NewObserver()
	for i, raw := range doc.Observations {
		at, err := factory.ParseDate(raw.At)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
		v, err := factory.ParseDecimal(raw.Value)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
		o.Add(raw.Series, at, v)
	}
	for i, raw := range doc.Events {
		at, err := factory.ParseDate(raw.At)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		typ, err := generic.ParseEventType(raw.Type)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if err := o.AddEvent(ContingentEvent{
			ContractID: generic.ContractID(raw.ContractID),
			At:         at,
			Type:       typ,
			Currency:   raw.Currency,
		}); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ParseFile reads an observations file.
func ParseFile(path string) (*Observer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read observations %s: %w", path, err)
	}
	return Parse(data)
}
