package adapter

import (
	"context"

	"github.com/nerrad567/gray-logic-av/internal/reliability"
)

// Dispatch executes one named command with the adapter's default retry
// policy.
//
// Parameters:
//   - ctx: Cancels in-flight core calls and backoff waits
//   - method: Command name, including historical aliases
//   - params: Loosely-typed parameters in any accepted shape
//
// Returns:
//   - any: The command's result payload
//   - error: Always a *CommandError, classified by code
func (a *Adapter) Dispatch(ctx context.Context, method string, params any) (any, error) {
	return a.DispatchWithRetry(ctx, method, params, nil)
}

// DispatchWithRetry executes one named command with a per-call retry policy
// override. A nil override uses the adapter's default.
func (a *Adapter) DispatchWithRetry(ctx context.Context, method string, params any, retry *reliability.RetryConfig) (any, error) {
	retryer := a.retryer
	if retry != nil {
		retryer = reliability.NewRetryer(*retry)
	}

	a.logger.Debug("dispatching command", "method", method)
	result, err := a.route(ctx, retryer, method, params)
	if err != nil {
		ce := commandError(err)
		a.logger.Debug("command failed",
			"method", method, "code", ce.Code, "error", ce.Message)
		return nil, ce
	}
	return result, nil
}

// route resolves aliases and invokes the operation behind the command name.
func (a *Adapter) route(ctx context.Context, retryer *reliability.Retryer, method string, params any) (any, error) {
	switch method {
	case "Component.GetComponents":
		return a.getComponents(ctx, retryer)
	case "Component.Get":
		return a.getComponent(ctx, retryer, params)
	case "Component.Set":
		return a.setComponentControls(ctx, retryer, params)
	case "Component.GetControls":
		return a.getComponentControls(ctx, retryer, params)
	case "Component.GetAllControls":
		return a.getAllControls(ctx, retryer, params)

	case "Control.Get", "Control.GetValues", "ControlGetValues", "Control.GetMultiple":
		return a.getControls(ctx, retryer, params)
	case "Control.Set", "Control.SetValues", "ControlSetValues":
		return a.setControls(ctx, retryer, params)

	case "ChangeGroup.Create":
		return a.changeGroupCreate(params)
	case "ChangeGroup.AddControl":
		return a.changeGroupAddControl(params)
	case "ChangeGroup.AddComponentControl":
		return a.changeGroupAddComponentControl(params)
	case "ChangeGroup.Remove":
		return a.changeGroupRemove(params)
	case "ChangeGroup.Clear":
		return a.changeGroupClear(params)
	case "ChangeGroup.Poll":
		return a.changeGroupPoll(ctx, params)
	case "ChangeGroup.AutoPoll":
		return a.changeGroupAutoPoll(params)
	case "ChangeGroup.Destroy":
		return a.changeGroupDestroy(params)

	case "Status.Get", "StatusGet":
		return a.Status(ctx)

	default:
		return nil, invalidParams("unknown command %q", method)
	}
}
