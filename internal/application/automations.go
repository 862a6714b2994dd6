package application

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"alexa-climate-bridge/internal/domain"
)

// BatteryLowAlert notifies once when a battery sensor drops to or below the
// threshold.
type BatteryLowAlert struct {
	SensorEntity string
	DeviceName   string
	Threshold    float64
	Notifier     Notifier
}

func (a *BatteryLowAlert) Entities() []string { return []string{a.SensorEntity} }

func (a *BatteryLowAlert) HandleChange(ctx context.Context, c StateChange) error {
	oldLevel, err := strconv.ParseFloat(c.Old.State, 64)
	if err != nil {
		return nil
	}
	newLevel, err := strconv.ParseFloat(c.New.State, 64)
	if err != nil {
		return nil
	}

	if newLevel > a.Threshold || oldLevel <= a.Threshold {
		return nil
	}

	msg := fmt.Sprintf("Battery percent on %s has dropped below the %s threshold, please charge the device.",
		a.DeviceName, strconv.FormatFloat(a.Threshold, 'f', -1, 64))
	if err := a.Notifier.Notify(ctx, "Battery Low", msg); err != nil {
		return fmt.Errorf("sending battery notification: %w", err)
	}
	return nil
}

// SensorSwitches turns switches on when a sensor opens and off when it
// closes, each direction enabled separately.
type SensorSwitches struct {
	SensorEntity      string
	SwitchEntities    []string
	TurnOnWhenOpened  bool
	TurnOffWhenClosed bool
	Backend           Backend
}

func (a *SensorSwitches) Entities() []string { return []string{a.SensorEntity} }

func (a *SensorSwitches) HandleChange(ctx context.Context, c StateChange) error {
	var service string
	switch {
	case a.TurnOnWhenOpened && c.Old.Binary == domain.BinaryFalse && c.New.Binary == domain.BinaryTrue:
		service = "switch.turn_on"
	case a.TurnOffWhenClosed && c.Old.Binary == domain.BinaryTrue && c.New.Binary == domain.BinaryFalse:
		service = "switch.turn_off"
	default:
		return nil
	}

	for _, sw := range a.SwitchEntities {
		call := domain.ServiceCall{Service: service, Data: map[string]any{"entity_id": sw}}
		if err := a.Backend.CallService(ctx, call); err != nil {
			return fmt.Errorf("%s %s: %w", service, sw, err)
		}
	}
	return nil
}

// MessageHandler reacts to messages on one topic.
type MessageHandler interface {
	Topic() string
	HandleMessage(ctx context.Context, topic string, payload []byte) error
}

// MessageSubscriber delivers broker messages to a callback.
type MessageSubscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
}

// SubscribeMessages registers every handler with the subscriber.
func SubscribeMessages(ctx context.Context, sub MessageSubscriber, qos byte, handlers ...MessageHandler) error {
	for _, h := range handlers {
		err := sub.Subscribe(h.Topic(), qos, func(topic string, payload []byte) error {
			return h.HandleMessage(ctx, topic, payload)
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", h.Topic(), err)
		}
	}
	return nil
}

// MessageServiceCall calls a service when a message arrives on a topic. An
// empty Payload matches every message.
type MessageServiceCall struct {
	MessageTopic string
	Payload      string
	Service      string
	Data         map[string]any
	Backend      Backend
}

func (a *MessageServiceCall) Topic() string { return a.MessageTopic }

func (a *MessageServiceCall) HandleMessage(ctx context.Context, _ string, payload []byte) error {
	if a.Payload != "" && strings.TrimSpace(string(payload)) != a.Payload {
		return nil
	}
	if err := a.Backend.CallService(ctx, domain.ServiceCall{Service: a.Service, Data: maps.Clone(a.Data)}); err != nil {
		return fmt.Errorf("calling %s: %w", a.Service, err)
	}
	return nil
}

type wallPanelBattery struct {
	Value      json.Number `json:"value"`
	Charging   bool        `json:"charging"`
	ACPlugged  bool        `json:"acPlugged"`
	USBPlugged bool        `json:"usbPlugged"`
}

// WallPanelBattery mirrors the battery report of a wall panel tablet onto a
// sensor entity, keeping the attributes it already had.
type WallPanelBattery struct {
	SensorEntity string
	SensorTopic  string
	Backend      Backend
}

func (a *WallPanelBattery) Topic() string { return a.SensorTopic }

func (a *WallPanelBattery) HandleMessage(ctx context.Context, _ string, payload []byte) error {
	var report wallPanelBattery
	if err := json.Unmarshal(payload, &report); err != nil {
		return fmt.Errorf("parsing wall panel message: %w", err)
	}
	if report.Value == "" {
		return fmt.Errorf("wall panel message without value")
	}

	current, err := a.Backend.GetState(ctx, a.SensorEntity)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", a.SensorEntity, err)
	}

	attrs := maps.Clone(current.Attributes)
	if attrs == nil {
		attrs = make(map[string]any)
	}
	attrs["charging"] = report.Charging
	attrs["acPlugged"] = report.ACPlugged
	attrs["usbPlugged"] = report.USBPlugged

	if err := a.Backend.SetState(ctx, a.SensorEntity, report.Value.String(), attrs); err != nil {
		return fmt.Errorf("setting %s: %w", a.SensorEntity, err)
	}
	return nil
}
