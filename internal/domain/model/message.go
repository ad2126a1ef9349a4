package model

import "encoding/json"

// Message types understood by the message router.
const (
	MessagePing                 = "ping"
	MessageGetCredentials       = "getCredentials"
	MessageSaveCredentials      = "saveCredentials"
	MessageValidateCredentials  = "validateCredentials"
	MessageClearCredentials     = "clearCredentials"
	MessageGetPlugins           = "getPlugins"
	MessageSetPluginEnabled     = "setPluginEnabled"
	MessageUpdatePluginSettings = "updatePluginSettings"
	MessagePluginAction         = "pluginAction"
	MessageGetLinks             = "getLinks"
	MessageGetSettings          = "getSettings"
)

// Message is the envelope exchanged between execution contexts.
type Message struct {
	Type     string          `json:"type"`
	PluginID string          `json:"pluginId,omitempty"`
	Context  ExecContext     `json:"context,omitempty"`
	Action   string          `json:"action,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// MessageResponse is the reply envelope for a Message.
type MessageResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}
