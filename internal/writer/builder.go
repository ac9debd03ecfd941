// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	cfg "github.com/tamzrod/battery-monitor/internal/config"
	wmodbus "github.com/tamzrod/battery-monitor/internal/writer/modbus"
)

// BuildPlan converts one device config into a Writer Plan.
// Assumes config has already passed collision validation.
func BuildPlan(d cfg.DeviceConfig) (Plan, error) {
	if d.ID == "" {
		return Plan{}, errors.New("writer: device.id required")
	}

	plan := Plan{DeviceID: d.ID}

	for _, t := range d.Targets {
		plan.Targets = append(plan.Targets, Target{
			Endpoint: t.Endpoint,
			UnitID:   t.UnitID,
			BaseSlot: t.BaseSlot,
		})
	}

	return plan, nil
}

// BuildEndpointClients creates one TCP client per unique endpoint.
func BuildEndpointClients(plan Plan, timeout time.Duration) (map[string]RegisterWriter, func() error, error) {
	unique := map[string]struct{}{}
	for _, t := range plan.Targets {
		unique[t.Endpoint] = struct{}{}
	}

	clients := make(map[string]RegisterWriter)
	var closers []func() error

	for endpoint := range unique {
		c, err := wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: endpoint,
			Timeout:  timeout,
		})
		if err != nil {
			for _, fn := range closers {
				_ = fn()
			}
			return nil, nil, err
		}
		clients[endpoint] = c
		closers = append(closers, c.Close)
	}

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	return clients, closeAll, nil
}
