package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"alexa-climate-bridge/internal/alexa"
	"alexa-climate-bridge/internal/domain"
)

const (
	OutcomeSuccess = "success"
	OutcomeIgnored = "ignored"

	// publishBudget bounds how long a state publish may hold up a response.
	publishBudget = 500 * time.Millisecond
)

type handlerFunc func(ctx context.Context, d alexa.Directive) (*alexa.Response, error)

type route struct {
	kind   alexa.Kind
	handle handlerFunc
}

// Dispatcher routes a raw directive by namespace and name and turns every
// outcome into a response envelope.
type Dispatcher struct {
	backend   Backend
	builder   *alexa.Builder
	settings  ClimateSettings
	publisher StatePublisher
	observer  DirectiveObserver
	logger    *slog.Logger
	routes    map[string]map[string]route
}

func NewDispatcher(
	backend Backend,
	builder *alexa.Builder,
	settings ClimateSettings,
	publisher StatePublisher,
	observer DirectiveObserver,
	logger *slog.Logger,
) *Dispatcher {
	if settings.Scale == "" {
		settings.Scale = ScaleCelsius
	}

	d := &Dispatcher{
		backend:   backend,
		builder:   builder,
		settings:  settings,
		publisher: publisher,
		observer:  observer,
		logger:    logger,
	}

	d.routes = map[string]map[string]route{
		alexa.NamespaceAlexa: {
			alexa.NameReportState: {alexa.KindEndpoint, d.handleReportState},
		},
		alexa.NamespaceDiscovery: {
			alexa.NameDiscover: {alexa.KindDiscovery, d.handleDiscover},
		},
		alexa.NamespacePower: {
			alexa.NameTurnOn:  {alexa.KindPower, d.handlePower},
			alexa.NameTurnOff: {alexa.KindPower, d.handlePower},
		},
		alexa.NamespaceThermostat: {
			alexa.NameSetTargetTemp:     {alexa.KindSetTemperature, d.handleSetTargetTemperature},
			alexa.NameAdjustTargetTemp:  {alexa.KindAdjustTemperature, d.handleAdjustTargetTemperature},
			alexa.NameSetThermostatMode: {alexa.KindSetMode, d.handleSetThermostatMode},
		},
	}

	return d
}

// Dispatch handles one raw directive. It returns nil only for discovery
// directives that must go unanswered.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) *alexa.Response {
	start := time.Now()

	req, err := alexa.Decode(raw)
	if err != nil {
		d.logger.Warn("rejecting malformed directive", "error", err)
		d.observer.ObserveDirective("", "", string(alexa.ErrorInvalidDirective), time.Since(start))
		return d.builder.Error(nil, alexa.InvalidDirective(err.Error()))
	}

	h := req.Header
	resp, outcome := d.route(ctx, req)
	elapsed := time.Since(start)
	d.observer.ObserveDirective(h.Namespace, h.Name, outcome, elapsed)

	level := slog.LevelInfo
	if outcome != OutcomeSuccess && outcome != OutcomeIgnored {
		level = slog.LevelWarn
	}
	d.logger.Log(ctx, level, "directive handled",
		"namespace", h.Namespace,
		"name", h.Name,
		"message_id", h.MessageID,
		"outcome", outcome,
		"duration", elapsed,
	)

	return resp
}

func (d *Dispatcher) route(ctx context.Context, req *alexa.Request) (resp *alexa.Response, outcome string) {
	h := req.Header
	generic := alexa.GenericDirective{Header: h}

	names, ok := d.routes[h.Namespace]
	if !ok {
		return d.fail(generic, alexa.InvalidDirective(fmt.Sprintf("namespace %s is unknown.", h.Namespace)))
	}

	rt, ok := names[h.Name]
	if !ok {
		if h.Namespace == alexa.NamespaceDiscovery {
			return nil, OutcomeIgnored
		}
		return d.fail(generic, alexa.InvalidDirective(fmt.Sprintf("name %s is unknown for namespace %s.", h.Name, h.Namespace)))
	}

	directive, err := req.Parse(rt.kind)
	if err != nil {
		if ep, epErr := req.Parse(alexa.KindEndpoint); epErr == nil {
			return d.fail(ep, d.classify(h, err))
		}
		return d.fail(generic, d.classify(h, err))
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("directive handler panic recovered",
				"namespace", h.Namespace,
				"name", h.Name,
				"panic", r,
			)
			resp, outcome = d.fail(directive, alexa.InternalError(fmt.Sprintf("%v", r)))
		}
	}()

	resp, err = rt.handle(ctx, directive)
	if err != nil {
		d.logger.Debug("directive failed", "namespace", h.Namespace, "name", h.Name, "error", err)
		return d.fail(directive, d.classify(h, err))
	}

	return resp, OutcomeSuccess
}

func (d *Dispatcher) fail(directive alexa.Directive, e *alexa.Error) (*alexa.Response, string) {
	return d.builder.Error(directive, e), string(e.Type)
}

// classify maps a handler or parse error onto the envelope error it should
// produce. Discovery only ever reports INTERNAL_ERROR.
func (d *Dispatcher) classify(h alexa.Header, err error) *alexa.Error {
	if h.Namespace == alexa.NamespaceDiscovery {
		return alexa.InternalError(err.Error())
	}

	var aerr *alexa.Error
	if errors.As(err, &aerr) {
		return aerr
	}

	var perr *alexa.ParseError
	switch {
	case errors.As(err, &perr):
		return alexa.InvalidDirective(err.Error())
	case errors.Is(err, domain.ErrEntityNotFound):
		return alexa.NoSuchEndpoint(err.Error())
	case errors.Is(err, domain.ErrBackendUnreachable):
		return alexa.BridgeUnreachable(err.Error())
	default:
		return alexa.InternalError(err.Error())
	}
}

// committed runs after a mutating directive succeeded. Publishing is best
// effort and never changes the response.
func (d *Dispatcher) committed(ctx context.Context, s *domain.EntityState) {
	d.observer.ObserveThermostat(s)

	ctx, cancel := context.WithTimeout(ctx, publishBudget)
	defer cancel()
	if err := d.publisher.PublishState(ctx, s); err != nil {
		d.logger.Warn("publishing state", "entity_id", s.ID, "error", err)
	}
}
