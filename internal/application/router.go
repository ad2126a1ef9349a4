package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// Router errors.
var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrUnknownAction  = errors.New("unknown plugin action")
	ErrPluginDisabled = errors.New("plugin is disabled")
	ErrWrongContext   = errors.New("plugin does not run in this context")
	ErrBadPayload     = errors.New("malformed payload")
)

// CredentialStatus is the client-facing view of stored credentials. Keys are
// never returned, only a masked hint of the API key.
type CredentialStatus struct {
	Configured      bool      `json:"configured"`
	APIKeyHint      string    `json:"apiKeyHint,omitempty"`
	Region          string    `json:"region,omitempty"`
	IsValid         bool      `json:"isValid"`
	LastValidatedAt time.Time `json:"lastValidatedAt,omitzero"`
}

// NewCredentialStatus masks creds for display.
func NewCredentialStatus(creds model.Credentials) CredentialStatus {
	return CredentialStatus{
		Configured:      !creds.IsEmpty(),
		APIKeyHint:      maskKey(creds.APIKey),
		Region:          creds.Region,
		IsValid:         creds.IsValid,
		LastValidatedAt: creds.LastValidatedAt,
	}
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

type credentialsPayload struct {
	APIKey string `json:"apiKey"`
	AppKey string `json:"appKey"`
}

type enabledPayload struct {
	Enabled bool `json:"enabled"`
}

type settingsPayload struct {
	Settings map[string]string `json:"settings"`
}

type extractPayload struct {
	HTML string `json:"html"`
}

type traceListPayload struct {
	Domain  string `json:"domain"`
	TraceID string `json:"traceId"`
	Limit   int    `json:"limit"`
}

type notificationListPayload struct {
	Limit int `json:"limit"`
}

type actionFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// MessageRouter dispatches envelopes from browser execution contexts to the
// application services.
type MessageRouter struct {
	credentials   *CredentialService
	plugins       *PluginService
	traces        *TraceService
	alerts        *AlertService
	notifications *NotificationService
	links         *LinkService
	settings      *SettingsService

	actions map[string]map[string]actionFunc
}

// NewMessageRouter creates a MessageRouter with all required dependencies.
func NewMessageRouter(
	credentials *CredentialService,
	plugins *PluginService,
	traces *TraceService,
	alerts *AlertService,
	notifications *NotificationService,
	links *LinkService,
	settings *SettingsService,
) *MessageRouter {
	r := &MessageRouter{
		credentials:   credentials,
		plugins:       plugins,
		traces:        traces,
		alerts:        alerts,
		notifications: notifications,
		links:         links,
		settings:      settings,
	}
	r.actions = map[string]map[string]actionFunc{
		PluginRUMExtractor: {
			"extract": r.rumExtract,
		},
		PluginAPMTracer: {
			"list":  r.traceList,
			"clear": r.traceClear,
			"stats": r.traceStats,
		},
		PluginEventAlerts: {
			"poll": r.alertPoll,
			"list": r.alertList,
		},
	}
	return r
}

// Handle dispatches msg and wraps the outcome in a response envelope. It never
// returns a transport-level error; failures are reported in the envelope.
func (r *MessageRouter) Handle(ctx context.Context, msg model.Message) model.MessageResponse {
	data, err := r.dispatch(ctx, msg)
	if err != nil {
		slog.Warn("message failed", "type", msg.Type, "plugin", msg.PluginID, "action", msg.Action, "error", err)
		return model.MessageResponse{Success: false, Error: err.Error()}
	}
	return model.MessageResponse{Success: true, Data: data}
}

func (r *MessageRouter) dispatch(ctx context.Context, msg model.Message) (any, error) {
	switch msg.Type {
	case model.MessagePing:
		return map[string]string{"pong": time.Now().UTC().Format(time.RFC3339)}, nil

	case model.MessageGetCredentials:
		creds, err := r.credentials.Get(ctx)
		if err != nil {
			return nil, err
		}
		return NewCredentialStatus(creds), nil

	case model.MessageSaveCredentials:
		var p credentialsPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		if err := r.credentials.Save(ctx, p.APIKey, p.AppKey); err != nil {
			return nil, err
		}
		creds, err := r.credentials.Get(ctx)
		if err != nil {
			return nil, err
		}
		return NewCredentialStatus(creds), nil

	case model.MessageValidateCredentials:
		var p credentialsPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		if p.APIKey == "" && p.AppKey == "" {
			return r.credentials.ValidateStored(ctx)
		}
		return r.credentials.Validate(ctx, p.APIKey, p.AppKey)

	case model.MessageClearCredentials:
		return nil, r.credentials.Clear(ctx)

	case model.MessageGetPlugins:
		return r.plugins.List(ctx, msg.Context)

	case model.MessageSetPluginEnabled:
		var p enabledPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		return r.plugins.SetEnabled(ctx, msg.PluginID, p.Enabled)

	case model.MessageUpdatePluginSettings:
		var p settingsPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		return r.plugins.UpdateSettings(ctx, msg.PluginID, p.Settings)

	case model.MessagePluginAction:
		return r.pluginAction(ctx, msg)

	case model.MessageGetLinks:
		return r.links.List(ctx)

	case model.MessageGetSettings:
		return r.settings.Get(ctx)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// pluginAction runs a plugin action after checking the plugin exists, is
// enabled and declares the calling context.
func (r *MessageRouter) pluginAction(ctx context.Context, msg model.Message) (any, error) {
	view, err := r.plugins.Get(ctx, msg.PluginID)
	if err != nil {
		return nil, err
	}
	if !view.Entry.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrPluginDisabled, msg.PluginID)
	}
	if msg.Context != "" && !view.Manifest.Contexts.Has(msg.Context) {
		return nil, fmt.Errorf("%w: %s in %s", ErrWrongContext, msg.PluginID, msg.Context)
	}

	action, ok := r.actions[msg.PluginID][msg.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownAction, msg.PluginID, msg.Action)
	}
	return action(ctx, msg.Payload)
}

func (r *MessageRouter) rumExtract(_ context.Context, payload json.RawMessage) (any, error) {
	var p extractPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	return ExtractRUMConfig(p.HTML)
}

func (r *MessageRouter) traceList(_ context.Context, payload json.RawMessage) (any, error) {
	var p traceListPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	records := r.traces.List(model.TraceFilter{Domain: p.Domain, TraceID: p.TraceID, Limit: p.Limit})
	return lo.Map(records, func(rec model.TraceRecord, _ int) TraceView { return toTraceView(rec) }), nil
}

func (r *MessageRouter) traceClear(ctx context.Context, _ json.RawMessage) (any, error) {
	return nil, r.traces.Clear(ctx)
}

func (r *MessageRouter) traceStats(_ context.Context, _ json.RawMessage) (any, error) {
	return r.traces.Stats(), nil
}

func (r *MessageRouter) alertPoll(ctx context.Context, _ json.RawMessage) (any, error) {
	if err := r.alerts.Refresh(ctx); err != nil {
		return nil, err
	}
	return r.notifications.List(0), nil
}

func (r *MessageRouter) alertList(_ context.Context, payload json.RawMessage) (any, error) {
	var p notificationListPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	return r.notifications.List(p.Limit), nil
}

// decodePayload unmarshals payload into v. An absent payload leaves v zero.
func decodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	return nil
}

// IsNotFound reports whether err is a missing-entity error from any service.
func IsNotFound(err error) bool {
	return errors.Is(err, driven.ErrPluginNotFound) ||
		errors.Is(err, driven.ErrLinkNotFound) ||
		errors.Is(err, driven.ErrTraceNotFound)
}
