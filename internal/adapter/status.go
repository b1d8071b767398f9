package adapter

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/control"
	"github.com/nerrad567/gray-logic-av/internal/reliability"
)

// Status is the platform and connection snapshot returned by Status.Get.
// Platform fields come from the core's own status report and are empty when
// the core is disconnected or does not implement the raw status method.
type Status struct {
	Platform      string `json:"Platform,omitempty"`
	State         string `json:"State,omitempty"`
	DesignName    string `json:"DesignName,omitempty"`
	DesignCode    string `json:"DesignCode,omitempty"`
	IsEmulator    bool   `json:"IsEmulator"`
	Connected     bool   `json:"Connected"`
	UptimeSeconds int64  `json:"UptimeSeconds"`
}

// Stats aggregates the adapter's operational counters for status surfaces
// and health reporting.
type Stats struct {
	Index         control.IndexStats       `json:"index"`
	Cache         reliability.CacheStats   `json:"cache"`
	Breaker       reliability.BreakerStats `json:"breaker"`
	ChangeGroups  int                      `json:"change_groups"`
	UptimeSeconds int64                    `json:"uptime_seconds"`
}

// Connected reports whether the core connection is currently live.
func (a *Adapter) Connected() bool {
	return a.client.IsConnected()
}

// Status builds the Status.Get snapshot. A disconnected core yields a
// snapshot with Connected false rather than an error; a core that cannot
// answer the raw status query yields the adapter-side fields only.
func (a *Adapter) Status(ctx context.Context) (Status, error) {
	status := Status{
		Connected:     a.client.IsConnected(),
		UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
	}
	if !status.Connected {
		return status, nil
	}

	var raw any
	err := a.call(ctx, a.retryer, func(ctx context.Context) error {
		var callErr error
		raw, callErr = a.client.SendRaw(ctx, "Status.Get", nil)
		return callErr
	})
	if err != nil {
		a.logger.Debug("core status query failed", "error", err)
		return status, nil
	}

	if fields, ok := raw.(map[string]any); ok {
		status.Platform = stringField(fields, "Platform")
		status.State = stringField(fields, "State")
		status.DesignName = stringField(fields, "DesignName")
		status.DesignCode = stringField(fields, "DesignCode")
		status.IsEmulator, _ = fields["IsEmulator"].(bool)
	}
	return status, nil
}

// Stats returns the adapter's operational counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		Index:         a.index.Stats(),
		Cache:         a.cache.Stats(),
		Breaker:       a.breaker.Stats(),
		ChangeGroups:  len(a.engine.Groups()),
		UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
	}
}
