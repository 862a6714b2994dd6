package application

import (
	"context"
	"fmt"
	"strings"

	"alexa-climate-bridge/internal/alexa"
	"alexa-climate-bridge/internal/domain"
)

func (d *Dispatcher) handleReportState(ctx context.Context, dir alexa.Directive) (*alexa.Response, error) {
	ep := dir.(alexa.EndpointDirective)

	s, err := d.backend.GetState(ctx, alexa.EntityID(ep.EndpointID))
	if err != nil {
		return nil, fmt.Errorf("fetching state: %w", err)
	}

	d.observer.ObserveThermostat(s)
	return d.builder.StateReport(ep, s, d.settings.Scale), nil
}

func (d *Dispatcher) handleDiscover(ctx context.Context, _ alexa.Directive) (*alexa.Response, error) {
	states, err := d.backend.GetStates(ctx, d.settings.Entities)
	if err != nil {
		return nil, fmt.Errorf("fetching states: %w", err)
	}

	d.logger.Info("discovery", "endpoints", len(states))
	return d.builder.Discovery(states), nil
}

func (d *Dispatcher) handlePower(ctx context.Context, dir alexa.Directive) (*alexa.Response, error) {
	pd := dir.(alexa.PowerDirective)
	entityID := alexa.EntityID(pd.EndpointID)

	if !d.settings.configured(entityID) {
		return nil, alexa.NoSuchEndpoint(fmt.Sprintf("unknown endpoint %s", pd.EndpointID))
	}

	mode := "off"
	if pd.TurnOn {
		mode = d.settings.DefaultModeForOn
	}

	if err := d.backend.CallService(ctx, d.settings.setModeCall(entityID, mode)); err != nil {
		return nil, fmt.Errorf("setting mode %s: %w", mode, err)
	}

	s, err := d.backend.GetState(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("fetching state: %w", err)
	}

	d.committed(ctx, s)
	return d.builder.PowerControl(pd.EndpointDirective, s), nil
}

func (d *Dispatcher) handleSetTargetTemperature(ctx context.Context, dir alexa.Directive) (*alexa.Response, error) {
	sd := dir.(alexa.SetTemperatureDirective)
	return d.setTarget(ctx, sd.EndpointDirective, func(*domain.EntityState) float64 {
		return RoundTenth(sd.Value)
	})
}

func (d *Dispatcher) handleAdjustTargetTemperature(ctx context.Context, dir alexa.Directive) (*alexa.Response, error) {
	ad := dir.(alexa.AdjustTemperatureDirective)
	return d.setTarget(ctx, ad.EndpointDirective, func(s *domain.EntityState) float64 {
		return RoundTenth(s.Temperature + RoundTenth(ad.Delta))
	})
}

func (d *Dispatcher) setTarget(
	ctx context.Context,
	ep alexa.EndpointDirective,
	target func(*domain.EntityState) float64,
) (*alexa.Response, error) {
	entityID := alexa.EntityID(ep.EndpointID)

	s, err := d.backend.GetState(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("fetching state: %w", err)
	}

	if IsOff(s) {
		return nil, alexa.ThermostatIsOff("endpoint is off")
	}

	t := target(s)
	if !InRange(t, s.MinTemp, s.MaxTemp) {
		return nil, alexa.TemperatureOutOfRange("out of range", s.MinTemp, s.MaxTemp, d.settings.Scale)
	}

	if err := d.backend.CallService(ctx, d.settings.setTemperatureCall(entityID, t)); err != nil {
		return nil, fmt.Errorf("setting temperature: %w", err)
	}

	s, err = d.afterCommand(ctx, s, func(s *domain.EntityState) { s.ApplyTargetTemperature(t) })
	if err != nil {
		return nil, err
	}

	d.committed(ctx, s)
	return d.builder.ThermostatControl(ep, s, d.settings.Scale), nil
}

func (d *Dispatcher) handleSetThermostatMode(ctx context.Context, dir alexa.Directive) (*alexa.Response, error) {
	md := dir.(alexa.SetModeDirective)
	entityID := alexa.EntityID(md.EndpointID)
	mode := strings.ToLower(md.Mode)

	s, err := d.backend.GetState(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("fetching state: %w", err)
	}

	if !s.SupportsMode(mode) {
		return nil, alexa.InvalidValue(fmt.Sprintf("mode %s is not supported", md.Mode))
	}

	if err := d.backend.CallService(ctx, d.settings.setModeCall(entityID, mode)); err != nil {
		return nil, fmt.Errorf("setting mode %s: %w", mode, err)
	}

	s, err = d.afterCommand(ctx, s, func(s *domain.EntityState) { s.ApplyMode(mode) })
	if err != nil {
		return nil, err
	}

	d.committed(ctx, s)
	return d.builder.ThermostatControl(md.EndpointDirective, s, d.settings.Scale), nil
}

// afterCommand returns the post-command snapshot, either mirrored locally or
// read back from the backend.
func (d *Dispatcher) afterCommand(ctx context.Context, s *domain.EntityState, mirror func(*domain.EntityState)) (*domain.EntityState, error) {
	if !d.settings.RefetchAfterCommand {
		mirror(s)
		return s, nil
	}

	fresh, err := d.backend.GetState(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("refetching state: %w", err)
	}
	return fresh, nil
}
