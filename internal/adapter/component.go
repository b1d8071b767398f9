package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-av/internal/processor"
	"github.com/nerrad567/gray-logic-av/internal/reliability"
)

// ComponentInfo is one entry in a Component.GetComponents result.
type ComponentInfo struct {
	Name       string               `json:"Name"`
	Type       string               `json:"Type,omitempty"`
	Properties []processor.Property `json:"Properties"`
}

// ControlReading is one control's observed state in a read result. Position
// accompanies component-scoped reads; Error marks per-item read failures in
// batch results.
type ControlReading struct {
	Name     string   `json:"Name"`
	Value    any      `json:"Value"`
	String   string   `json:"String"`
	Position *float64 `json:"Position,omitempty"`
	Error    string   `json:"Error,omitempty"`
}

// ComponentReadings is a Component.Get result.
type ComponentReadings struct {
	Name     string           `json:"Name"`
	Controls []ControlReading `json:"Controls"`
}

// ControlDetail is one control with its full metadata, as returned by
// Component.GetControls and Component.GetAllControls.
type ControlDetail struct {
	Name      string   `json:"Name"`
	Component string   `json:"Component,omitempty"`
	Type      string   `json:"Type,omitempty"`
	Direction string   `json:"Direction,omitempty"`
	Value     any      `json:"Value"`
	String    string   `json:"String"`
	Position  float64  `json:"Position"`
	Min       *float64 `json:"Min,omitempty"`
	Max       *float64 `json:"Max,omitempty"`
	MaxLength *int     `json:"MaxLength,omitempty"`
}

// getComponents serves Component.GetComponents from the cached design tree.
func (a *Adapter) getComponents(ctx context.Context, retryer *reliability.Retryer) (any, error) {
	tree, err := a.cachedTree(ctx, retryer)
	if err != nil {
		return nil, err
	}

	infos := make([]ComponentInfo, 0, len(tree))
	for _, comp := range tree {
		properties := comp.Properties
		if properties == nil {
			properties = []processor.Property{}
		}
		infos = append(infos, ComponentInfo{
			Name:       comp.Name,
			Type:       comp.Type,
			Properties: properties,
		})
	}
	return infos, nil
}

// getComponent serves Component.Get: the named component's control values,
// optionally filtered to a requested subset.
func (a *Adapter) getComponent(ctx context.Context, retryer *reliability.Retryer, params any) (any, error) {
	p, ok := asMap(params)
	if !ok || stringField(p, "Name") == "" {
		return nil, invalidParams("component Name required")
	}
	name := stringField(p, "Name")

	requested, err := subsetNames(p)
	if err != nil {
		return nil, err
	}

	controls, err := a.cachedComponent(ctx, retryer, name)
	if err != nil {
		return nil, err
	}

	readings := make([]ControlReading, 0, len(controls))
	if requested == nil {
		for _, ctl := range controls {
			readings = append(readings, readingFrom(ctl))
		}
	} else {
		byName := make(map[string]processor.ControlInfo, len(controls))
		for _, ctl := range controls {
			byName[ctl.Name] = ctl
		}
		for _, want := range requested {
			ctl, exists := byName[want]
			if !exists {
				return nil, commandError(fmt.Errorf("%w: %q on component %q",
					processor.ErrControlNotFound, want, name))
			}
			readings = append(readings, readingFrom(ctl))
		}
	}
	return ComponentReadings{Name: name, Controls: readings}, nil
}

// getComponentControls serves Component.GetControls: the named component's
// controls with full metadata.
func (a *Adapter) getComponentControls(ctx context.Context, retryer *reliability.Retryer, params any) (any, error) {
	p, ok := asMap(params)
	if !ok || stringField(p, "Name") == "" {
		return nil, invalidParams("component Name required")
	}
	name := stringField(p, "Name")

	controls, err := a.cachedComponent(ctx, retryer, name)
	if err != nil {
		return nil, err
	}

	details := make([]ControlDetail, 0, len(controls))
	for _, ctl := range controls {
		details = append(details, detailFrom("", ctl))
	}
	return details, nil
}

// getAllControls serves Component.GetAllControls: every control in the
// design, optionally filtered by a case-insensitive substring on the full
// name.
func (a *Adapter) getAllControls(ctx context.Context, retryer *reliability.Retryer, params any) (any, error) {
	p, ok := asMap(params)
	if !ok {
		return nil, invalidParams("expected an object with an optional Filter")
	}
	filter := strings.ToLower(stringField(p, "Filter"))

	tree, err := a.cachedTree(ctx, retryer)
	if err != nil {
		return nil, err
	}

	details := make([]ControlDetail, 0)
	for _, comp := range tree {
		for _, ctl := range comp.Controls {
			if filter != "" {
				full := strings.ToLower(comp.Name + "." + ctl.Name)
				if !strings.Contains(full, filter) {
					continue
				}
			}
			details = append(details, detailFrom(comp.Name, ctl))
		}
	}
	return details, nil
}

// subsetNames extracts the optional Controls subset of a Component.Get call.
// A nil return means the whole component was requested.
func subsetNames(p map[string]any) ([]string, error) {
	raw, present := p["Controls"]
	if !present {
		return nil, nil
	}
	names, err := nameList(raw)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// cachedTree reads the full design tree through the response cache.
func (a *Adapter) cachedTree(ctx context.Context, retryer *reliability.Retryer) ([]processor.Component, error) {
	v, err := a.cache.GetOrLoad(ctx, cacheKeyComponents, func(ctx context.Context) (any, error) {
		var tree []processor.Component
		err := a.call(ctx, retryer, func(ctx context.Context) error {
			var callErr error
			tree, callErr = a.client.ComponentTree(ctx)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]processor.Component), nil
}

// cachedComponent reads one component's controls through the response cache.
func (a *Adapter) cachedComponent(ctx context.Context, retryer *reliability.Retryer, name string) ([]processor.ControlInfo, error) {
	v, err := a.cache.GetOrLoad(ctx, cacheKeyComponentOne+name, func(ctx context.Context) (any, error) {
		var tree []processor.Component
		err := a.call(ctx, retryer, func(ctx context.Context) error {
			var callErr error
			tree, callErr = a.client.ComponentTree(ctx)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		for _, comp := range tree {
			if comp.Name == name {
				return comp.Controls, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", processor.ErrComponentNotFound, name)
	})
	if err != nil {
		return nil, err
	}
	return v.([]processor.ControlInfo), nil
}

func readingFrom(ctl processor.ControlInfo) ControlReading {
	position := ctl.Position
	return ControlReading{
		Name:     ctl.Name,
		Value:    ctl.Value,
		String:   ctl.String,
		Position: &position,
	}
}

func detailFrom(component string, ctl processor.ControlInfo) ControlDetail {
	return ControlDetail{
		Name:      ctl.Name,
		Component: component,
		Type:      ctl.Type,
		Direction: ctl.Direction,
		Value:     ctl.Value,
		String:    ctl.String,
		Position:  ctl.Position,
		Min:       ctl.Min,
		Max:       ctl.Max,
		MaxLength: ctl.MaxLength,
	}
}
