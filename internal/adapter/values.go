package adapter

import (
	"context"

	"github.com/nerrad567/gray-logic-av/internal/control"
	"github.com/nerrad567/gray-logic-av/internal/processor"
	"github.com/nerrad567/gray-logic-av/internal/reliability"
)

// SetResult is one control's outcome in a write result. Result is "Success"
// or "Error"; Error carries the message for failed entries.
type SetResult struct {
	Name   string `json:"Name"`
	Result string `json:"Result"`
	Error  string `json:"Error,omitempty"`
}

// ComponentSetResult is a Component.Set result envelope.
type ComponentSetResult struct {
	Result  bool        `json:"result"`
	Details []SetResult `json:"details"`
}

const (
	setSuccess = "Success"
	setError   = "Error"
)

// getControls serves Control.Get and its aliases: current values for a list
// of full control names. Failed reads surface per entry, never as a whole-
// batch error.
func (a *Adapter) getControls(ctx context.Context, retryer *reliability.Retryer, params any) (any, error) {
	names, err := controlNames(params)
	if err != nil {
		return nil, err
	}

	readings := make([]ControlReading, 0, len(names))
	for _, name := range names {
		value, err := a.cachedControlValue(ctx, retryer, name)
		if err != nil {
			readings = append(readings, ControlReading{
				Name:  name,
				Error: commandError(err).Message,
			})
			continue
		}
		readings = append(readings, ControlReading{
			Name:   name,
			Value:  value.Value,
			String: value.String,
		})
	}
	return readings, nil
}

// setControls serves Control.Set and its aliases. Each target applies
// independently; an entry carrying Ramp bypasses validation and goes through
// the raw passthrough so the core performs the ramp.
func (a *Adapter) setControls(ctx context.Context, retryer *reliability.Retryer, params any) (any, error) {
	targets, err := setTargets(params)
	if err != nil {
		return nil, err
	}

	results := make([]SetResult, 0, len(targets))
	for _, target := range targets {
		results = append(results, a.applySet(ctx, retryer, target.Name, target.Name, target, true))
	}
	return results, nil
}

// setComponentControls serves Component.Set. Ramps are not supported on this
// path: entries carrying one are applied without it, under a warning.
func (a *Adapter) setComponentControls(ctx context.Context, retryer *reliability.Retryer, params any) (any, error) {
	p, ok := asMap(params)
	if !ok || stringField(p, "Name") == "" {
		return nil, invalidParams("component Name required")
	}
	component := stringField(p, "Name")
	raw, present := p["Controls"]
	if !present {
		return nil, invalidParams("component Controls required")
	}

	entries, err := anySlice(raw)
	if err != nil {
		return nil, err
	}
	targets := make([]setTarget, 0, len(entries))
	ramped := false
	for _, entry := range entries {
		target, err := setEntry(entry)
		if err != nil {
			return nil, err
		}
		if target.Ramp != nil {
			ramped = true
		}
		targets = append(targets, target)
	}
	if ramped {
		a.logger.Warn("ramp not supported for component sets, applying values without ramp",
			"component", component)
	}

	details := make([]SetResult, 0, len(targets))
	for _, target := range targets {
		full := control.JoinName(component, target.Name)
		details = append(details, a.applySet(ctx, retryer, target.Name, full, target, false))
	}
	return ComponentSetResult{Result: true, Details: details}, nil
}

// applySet writes one canonical target and reports its per-entry outcome.
// resultName is echoed back to the caller; full is the index lookup key.
// allowRamp selects the raw passthrough for ramped entries.
func (a *Adapter) applySet(ctx context.Context, retryer *reliability.Retryer, resultName, full string, target setTarget, allowRamp bool) SetResult {
	var value any
	switch {
	case target.HasValue:
		value = target.Value
	case target.Position != nil:
		value = *target.Position
	default:
		return SetResult{Name: resultName, Result: setError, Error: "value required"}
	}

	if allowRamp && target.Ramp != nil {
		if err := a.rawRampedSet(ctx, retryer, full, value, *target.Ramp); err != nil {
			return SetResult{Name: resultName, Result: setError, Error: commandError(err).Message}
		}
		return SetResult{Name: resultName, Result: setSuccess}
	}

	entry, err := a.index.Resolve(ctx, full)
	if err != nil {
		return SetResult{Name: resultName, Result: setError, Error: commandError(err).Message}
	}

	coerced, err := control.Validate(full, value, entry.Type)
	if err != nil {
		return SetResult{Name: resultName, Result: setError, Error: commandError(err).Message}
	}

	err = a.call(ctx, retryer, func(ctx context.Context) error {
		return a.client.SetControlValue(ctx, entry.Ref.Component, entry.Ref.Control, coerced)
	})
	if err != nil {
		return SetResult{Name: resultName, Result: setError, Error: commandError(err).Message}
	}

	a.invalidateWrite(entry.Ref.Component, full)
	a.logger.Debug("control set", "control", full, "value", coerced)
	return SetResult{Name: resultName, Result: setSuccess}
}

// rawRampedSet issues a ramped write as a raw passthrough, skipping
// validation so the core applies its own coercion during the ramp.
func (a *Adapter) rawRampedSet(ctx context.Context, retryer *reliability.Retryer, full string, value any, ramp float64) error {
	err := a.call(ctx, retryer, func(ctx context.Context) error {
		_, callErr := a.client.SendRaw(ctx, "Control.Set", map[string]any{
			"Name":  full,
			"Value": value,
			"Ramp":  ramp,
		})
		return callErr
	})
	if err != nil {
		return err
	}

	component, _ := control.SplitName(full)
	a.invalidateWrite(component, full)
	a.logger.Debug("ramped control set", "control", full, "ramp_seconds", ramp)
	return nil
}

// cachedControlValue reads one control through the response cache, resolving
// its reference via the index.
func (a *Adapter) cachedControlValue(ctx context.Context, retryer *reliability.Retryer, full string) (processor.Value, error) {
	v, err := a.cache.GetOrLoad(ctx, cacheKeyControlReading+full, func(ctx context.Context) (any, error) {
		entry, err := a.index.Resolve(ctx, full)
		if err != nil {
			return nil, err
		}
		var value processor.Value
		err = a.call(ctx, retryer, func(ctx context.Context) error {
			var callErr error
			value, callErr = a.client.ControlValue(ctx, entry.Ref.Component, entry.Ref.Control)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return processor.Value{}, err
	}
	return v.(processor.Value), nil
}
