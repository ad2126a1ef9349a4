package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/setoolkit/internal/application"
)

const rumPage = `<!doctype html>
<html><head>
<script src="https://www.datadoghq-browser-agent.com/us1/v5/datadog-rum.js" type="text/javascript"></script>
<script>
  window.DD_RUM && window.DD_RUM.onReady(function() {
    window.DD_RUM.init({
      clientToken: 'pub0123456789abcdef',
      applicationId: "4f1d3c2b-aaaa-bbbb-cccc-1234567890ab",
      site: 'datadoghq.com',
      service: 'storefront',
      env: 'demo',
      version: ` + "`1.4.2`" + `,
      sessionSampleRate: 100,
      beforeSend: function(event) { if (event.type === "error") { return true } },
      trackUserInteractions: true,
    });
  });
</script>
</head><body></body></html>`

func TestExtractRUMConfig(t *testing.T) {
	cfg, err := application.ExtractRUMConfig(rumPage)

	require.NoError(t, err)
	assert.Equal(t, "4f1d3c2b-aaaa-bbbb-cccc-1234567890ab", cfg.ApplicationID)
	assert.Equal(t, "pub0123456789abcdef", cfg.ClientToken)
	assert.Equal(t, "datadoghq.com", cfg.Site)
	assert.Equal(t, "storefront", cfg.Service)
	assert.Equal(t, "demo", cfg.Env)
	assert.Equal(t, "1.4.2", cfg.Version)
	assert.Equal(t, "https://www.datadoghq-browser-agent.com/us1/v5/datadog-rum.js", cfg.SDKURL)
}

func TestExtractRUMConfig_NPMStyle(t *testing.T) {
	page := `<html><body><script>
import { datadogRum } from '@datadog/browser-rum';
datadogRum.init({ "applicationId": "app-1", "clientToken": "tok-1", "site": "datadoghq.eu" });
</script></body></html>`

	cfg, err := application.ExtractRUMConfig(page)

	require.NoError(t, err)
	assert.Equal(t, "app-1", cfg.ApplicationID)
	assert.Equal(t, "tok-1", cfg.ClientToken)
	assert.Equal(t, "datadoghq.eu", cfg.Site)
	assert.Empty(t, cfg.SDKURL)
}

func TestExtractRUMConfig_ScriptOnly(t *testing.T) {
	page := `<html><head><script async src="/static/datadog-rum-v5.js"></script></head></html>`

	cfg, err := application.ExtractRUMConfig(page)

	require.NoError(t, err)
	assert.Equal(t, "/static/datadog-rum-v5.js", cfg.SDKURL)
	assert.Empty(t, cfg.ApplicationID)
}

func TestExtractRUMConfig_NotFound(t *testing.T) {
	_, err := application.ExtractRUMConfig(`<html><script>console.log("hi")</script></html>`)

	assert.ErrorIs(t, err, application.ErrRUMNotFound)
}
