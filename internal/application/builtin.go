package application

import "github.com/ericfisherdev/setoolkit/internal/domain/model"

// Built-in plugin IDs.
const (
	PluginCredentials  = "credentials"
	PluginQuickLinks   = "quick-links"
	PluginRUMExtractor = "rum-extractor"
	PluginAPMTracer    = "apm-tracer"
	PluginEventAlerts  = "event-alerts"
)

// BuiltinManifests returns the manifests shipped with the toolkit.
func BuiltinManifests() []model.PluginManifest {
	return []model.PluginManifest{
		{
			ID:             PluginCredentials,
			Name:           "Credentials",
			Version:        "1.0.0",
			Description:    "Stores the API and application key pair and detects the account's region.",
			Core:           true,
			DefaultEnabled: true,
			Contexts:       model.PluginContexts{Background: true, Options: true},
			Permissions:    []string{"storage"},
		},
		{
			ID:             PluginQuickLinks,
			Name:           "Quick Links",
			Version:        "1.0.0",
			Description:    "Curated links to dashboards, docs and demo environments.",
			Core:           true,
			DefaultEnabled: true,
			Contexts:       model.PluginContexts{Options: true},
			Permissions:    []string{"storage", "tabs"},
		},
		{
			ID:             PluginRUMExtractor,
			Name:           "RUM Extractor",
			Version:        "1.1.0",
			Description:    "Reads the **RUM** SDK configuration from the current page.",
			DefaultEnabled: true,
			Contexts:       model.PluginContexts{Content: true},
			Permissions:    []string{"activeTab", "clipboardWrite"},
			Matches:        []string{"<all_urls>"},
		},
		{
			ID:             PluginAPMTracer,
			Name:           "APM Tracer",
			Version:        "1.2.0",
			Description:    "Captures requests carrying `x-datadog-trace-id`, `traceparent` or B3 headers.",
			DefaultEnabled: true,
			Contexts:       model.PluginContexts{Background: true, Options: true},
			Permissions:    []string{"webRequest", "storage", "tabs"},
		},
		{
			ID:          PluginEventAlerts,
			Name:        "Event Alerts",
			Version:     "1.0.0",
			Description: "Polls the event stream and raises notifications for error and warning events.",
			Contexts:    model.PluginContexts{Background: true},
			Permissions: []string{"alarms", "notifications", "storage"},
		},
	}
}
