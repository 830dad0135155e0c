package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "ligaproxy/internal/errors"
	"ligaproxy/internal/infrastructure"
	"ligaproxy/internal/normalize"
	"ligaproxy/internal/provider"
)

// Dispatcher is the entry point of the operation pipeline: it validates
// payloads against the operation catalog, invokes the provider and
// normalizes the result. Failures surface as code-carrying errors; the
// dispatcher never retries at its own level.
type Dispatcher struct {
	registry *Registry
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *infrastructure.Metrics
	tracer   trace.Tracer
}

// NewDispatcher builds a dispatcher whose catalog is bound to the given
// provider. The provider is passed by ownership so independent dispatcher
// instances (for example in tests) never share state.
func NewDispatcher(p provider.SportsProvider, logger *slog.Logger, metrics *infrastructure.Metrics) (*Dispatcher, error) {
	if p == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		registry: NewRegistry(),
		validate: newValidator(),
		logger:   logger.With(slog.String("component", "dispatcher")),
		metrics:  metrics,
		tracer:   otel.Tracer("ligaproxy/operations"),
	}

	for _, op := range catalog(p) {
		if err := d.registry.Register(op); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// newValidator creates the payload validator, reporting fields by their
// JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// catalog builds the operation descriptors bound to the provider.
func catalog(p provider.SportsProvider) []*Operation {
	return []*Operation{
		{
			Name:        OpListLeagues,
			Description: "List all leagues available from the provider",
			NewPayload:  func() interface{} { return &ListLeaguesPayload{} },
			Invoke: func(ctx context.Context, _ interface{}) (map[string]interface{}, error) {
				return p.ListLeagues(ctx)
			},
			Normalize: func(raw map[string]interface{}) (interface{}, error) {
				return normalize.ListLeagues(raw)
			},
			PayloadSchema: objectSchema(nil, map[string]interface{}{}),
			ResponseSchema: objectSchema([]string{"leagues"}, map[string]interface{}{
				"leagues": arrayProp(leagueSummarySchema()),
			}),
		},
		{
			Name:        OpGetLeagueMatches,
			Description: "List all matches of a league season",
			NewPayload:  func() interface{} { return &GetLeagueMatchesPayload{} },
			Invoke: func(ctx context.Context, payload interface{}) (map[string]interface{}, error) {
				pl := payload.(*GetLeagueMatchesPayload)
				return p.GetLeagueMatches(ctx, pl.LeagueShortcut, pl.LeagueSeason)
			},
			Normalize: func(raw map[string]interface{}) (interface{}, error) {
				return normalize.LeagueMatches(raw)
			},
			PayloadSchema: objectSchema(
				[]string{"league_shortcut", "league_season"},
				map[string]interface{}{
					"league_shortcut": stringProp(),
					"league_season":   stringProp(),
				},
			),
			ResponseSchema: objectSchema([]string{"matches"}, map[string]interface{}{
				"matches": arrayProp(matchDetailSchema()),
			}),
		},
		{
			Name:        OpGetTeam,
			Description: "Get team details by id",
			NewPayload:  func() interface{} { return &GetTeamPayload{} },
			Invoke: func(ctx context.Context, payload interface{}) (map[string]interface{}, error) {
				pl := payload.(*GetTeamPayload)
				return p.GetTeam(ctx, *pl.TeamID)
			},
			Normalize: func(raw map[string]interface{}) (interface{}, error) {
				return normalize.Team(raw)
			},
			PayloadSchema: objectSchema([]string{"team_id"}, map[string]interface{}{
				"team_id": integerProp(),
			}),
			ResponseSchema: objectSchema([]string{"team"}, map[string]interface{}{
				"team": teamDetailSchema(),
			}),
		},
		{
			Name:        OpGetMatch,
			Description: "Get match details by id",
			NewPayload:  func() interface{} { return &GetMatchPayload{} },
			Invoke: func(ctx context.Context, payload interface{}) (map[string]interface{}, error) {
				pl := payload.(*GetMatchPayload)
				return p.GetMatch(ctx, *pl.MatchID)
			},
			Normalize: func(raw map[string]interface{}) (interface{}, error) {
				return normalize.Match(raw)
			},
			PayloadSchema: objectSchema([]string{"match_id"}, map[string]interface{}{
				"match_id": integerProp(),
			}),
			ResponseSchema: objectSchema([]string{"match"}, map[string]interface{}{
				"match": matchDetailSchema(),
			}),
		},
	}
}

// Names returns the operation names in registration order.
func (d *Dispatcher) Names() []string {
	return d.registry.Names()
}

// Info returns the introspection view of the catalog.
func (d *Dispatcher) Info() map[string]OperationInfo {
	return d.registry.Info()
}

// Execute runs one operation: lookup, payload validation, provider call,
// normalization. The first failure is terminal and is returned as a
// code-carrying error; on success the normalized record is returned.
func (d *Dispatcher) Execute(ctx context.Context, operationType string, payload map[string]interface{}) (interface{}, *apierrors.Error) {
	ctx, span := d.tracer.Start(ctx, "operation.execute",
		trace.WithAttributes(attribute.String("operation.type", operationType)))
	defer span.End()

	op, exists := d.registry.Get(operationType)
	if !exists {
		d.logger.WarnContext(ctx, "unknown operation",
			slog.String("stage", "validation"),
			slog.String("operation_type", operationType))
		return d.fail(span, operationType, apierrors.UnknownOperation(operationType, d.registry.Names()))
	}

	validated, fieldErrors := d.decodePayload(op, payload)
	if len(fieldErrors) > 0 {
		d.logger.WarnContext(ctx, "payload validation failed",
			slog.String("stage", "validation"),
			slog.String("operation_type", operationType),
			slog.Any("validation_errors", fieldErrors))
		return d.fail(span, operationType, apierrors.Validation(fieldErrors))
	}
	d.logger.DebugContext(ctx, "payload validated",
		slog.String("stage", "validation"),
		slog.String("operation_type", operationType))

	d.logger.InfoContext(ctx, "invoking provider",
		slog.String("stage", "provider_call"),
		slog.String("operation_type", operationType))

	raw, err := op.Invoke(ctx, validated)
	if err != nil {
		d.logger.ErrorContext(ctx, "provider call failed",
			slog.String("stage", "provider_response"),
			slog.String("operation_type", operationType),
			slog.String("error", err.Error()))
		return d.fail(span, operationType, apierrors.Upstream(err.Error()))
	}

	result, err := op.Normalize(raw)
	if err != nil {
		// Shape drift between adapter and schema; retrying cannot fix it.
		d.logger.ErrorContext(ctx, "response normalization failed",
			slog.String("stage", "response_normalization"),
			slog.String("operation_type", operationType),
			slog.String("error", err.Error()))
		return d.fail(span, operationType, apierrors.Internal("provider response format unexpected"))
	}

	d.logger.InfoContext(ctx, "operation completed",
		slog.String("stage", "response_normalization"),
		slog.String("operation_type", operationType))
	if d.metrics != nil {
		d.metrics.OperationResults.WithLabelValues(operationType, "success").Inc()
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// fail records the failure on the span and metrics and passes the error on.
func (d *Dispatcher) fail(span trace.Span, operationType string, err *apierrors.Error) (interface{}, *apierrors.Error) {
	span.SetStatus(codes.Error, err.Code)
	span.SetAttributes(attribute.String("error.code", err.Code))
	if d.metrics != nil {
		d.metrics.OperationResults.WithLabelValues(operationType, err.Code).Inc()
	}
	return nil, err
}

// decodePayload decodes the raw payload into the operation's typed payload
// struct and validates it, returning one field error per violation.
func (d *Dispatcher) decodePayload(op *Operation, payload map[string]interface{}) (interface{}, []apierrors.FieldError) {
	if payload == nil {
		payload = map[string]interface{}{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, []apierrors.FieldError{{
			Field:   "payload",
			Message: "payload is not serializable",
			Type:    "invalid_payload",
		}}
	}

	target := op.NewPayload()
	if err := json.Unmarshal(data, target); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			return nil, []apierrors.FieldError{{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("expected %s, got %s", typeErr.Type.Kind(), typeErr.Value),
				Type:    "type_error",
			}}
		}
		return nil, []apierrors.FieldError{{
			Field:   "payload",
			Message: "payload could not be decoded",
			Type:    "invalid_payload",
		}}
	}

	if err := d.validate.Struct(target); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, []apierrors.FieldError{{
				Field:   "payload",
				Message: err.Error(),
				Type:    "invalid_payload",
			}}
		}
		fieldErrors := make([]apierrors.FieldError, 0, len(validationErrs))
		for _, ve := range validationErrs {
			fieldErrors = append(fieldErrors, apierrors.FieldError{
				Field:   ve.Field(),
				Message: validationMessage(ve),
				Type:    ve.Tag(),
			})
		}
		return nil, fieldErrors
	}

	return target, nil
}

// validationMessage renders a short human-readable message for one
// validation failure.
func validationMessage(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", ve.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", ve.Field(), ve.Tag())
	}
}
