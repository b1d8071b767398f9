package adapter

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/changegroup"
)

// AddControlResult is a ChangeGroup.AddControl result.
type AddControlResult struct {
	AddedCount int `json:"addedCount"`
}

// AddComponentControlResult is a ChangeGroup.AddComponentControl result,
// listing the full names actually added.
type AddComponentControlResult struct {
	Controls []string `json:"Controls"`
}

// RemoveResult is a ChangeGroup.Remove result.
type RemoveResult struct {
	Success           bool     `json:"Success"`
	RemainingControls []string `json:"RemainingControls"`
	RemovedCount      int      `json:"RemovedCount"`
}

// ClearResult is a ChangeGroup.Clear result.
type ClearResult struct {
	Success      bool `json:"Success"`
	ClearedCount int  `json:"ClearedCount"`
}

func (a *Adapter) changeGroupCreate(params any) (any, error) {
	p, ok := asMap(params)
	if !ok {
		return nil, changegroup.ErrIDRequired
	}
	if err := a.engine.Create(looseID(p, "Id")); err != nil {
		return nil, err
	}
	return nil, nil
}

func (a *Adapter) changeGroupAddControl(params any) (any, error) {
	p, ok := asMap(params)
	if !ok {
		return nil, changegroup.ErrIDRequired
	}
	names, err := nameList(p["Controls"])
	if err != nil {
		return nil, err
	}
	added, err := a.engine.AddControls(looseID(p, "Id"), names)
	if err != nil {
		return nil, err
	}
	return AddControlResult{AddedCount: added}, nil
}

func (a *Adapter) changeGroupAddComponentControl(params any) (any, error) {
	p, ok := asMap(params)
	if !ok {
		return nil, changegroup.ErrIDRequired
	}
	comp, ok := p["Component"].(map[string]any)
	if !ok {
		return nil, invalidParams("Component object required")
	}
	name := stringField(comp, "Name")
	if name == "" {
		return nil, invalidParams("component Name required")
	}
	controls, err := nameList(comp["Controls"])
	if err != nil {
		return nil, err
	}

	added, err := a.engine.AddComponentControls(looseID(p, "Id"), name, controls)
	if err != nil {
		return nil, err
	}
	return AddComponentControlResult{Controls: added}, nil
}

func (a *Adapter) changeGroupRemove(params any) (any, error) {
	p, ok := asMap(params)
	if !ok {
		return nil, changegroup.ErrIDRequired
	}

	// Absent and empty arrays fail differently; preserve the distinction.
	var names []string
	if raw, present := p["Controls"]; present {
		var err error
		names, err = nameList(raw)
		if err != nil {
			return nil, err
		}
	}

	removed, remaining, err := a.engine.Remove(looseID(p, "Id"), names)
	if err != nil {
		return nil, err
	}
	return RemoveResult{
		Success:           true,
		RemainingControls: remaining,
		RemovedCount:      removed,
	}, nil
}

func (a *Adapter) changeGroupClear(params any) (any, error) {
	p, ok := asMap(params)
	if !ok {
		return nil, changegroup.ErrIDRequired
	}
	cleared, err := a.engine.Clear(looseID(p, "Id"))
	if err != nil {
		return nil, err
	}
	return ClearResult{Success: true, ClearedCount: cleared}, nil
}

func (a *Adapter) changeGroupPoll(ctx context.Context, params any) (any, error) {
	p, ok := asMap(params)
	if !ok {
		return nil, changegroup.ErrIDRequired
	}
	return a.engine.Poll(ctx, looseID(p, "Id"))
}

func (a *Adapter) changeGroupAutoPoll(params any) (any, error) {
	p, ok := asMap(params)
	if !ok {
		return nil, changegroup.ErrIDRequired
	}
	rate, ok := asFloat(p["Rate"])
	if !ok {
		return nil, invalidParams("auto-poll Rate required")
	}
	err := a.engine.AutoPoll(looseID(p, "Id"), time.Duration(rate*float64(time.Second)))
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (a *Adapter) changeGroupDestroy(params any) (any, error) {
	p, ok := asMap(params)
	if !ok {
		return nil, changegroup.ErrIDRequired
	}
	if err := a.engine.Destroy(looseID(p, "Id")); err != nil {
		return nil, err
	}
	return true, nil
}
