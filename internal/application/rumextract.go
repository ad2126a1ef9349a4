package application

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// ErrRUMNotFound is returned when a page carries no RUM SDK configuration.
var ErrRUMNotFound = errors.New("no RUM configuration found")

var (
	rumInitCalls = []string{"DD_RUM.init(", "datadogRum.init("}
	rumStringKey = regexp.MustCompile(`(?:^|[\s,{])["']?(applicationId|clientToken|site|service|env|version)["']?\s*:\s*(?:"([^"]*)"|'([^']*)'|` + "`([^`]*)`" + `)`)
)

// ExtractRUMConfig parses page HTML for the RUM SDK script and its init call.
// Only literal string values are reported; values computed at runtime are left empty.
func ExtractRUMConfig(html string) (model.RUMConfig, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.RUMConfig{}, fmt.Errorf("parse page: %w", err)
	}

	var cfg model.RUMConfig

	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if src, ok := sel.Attr("src"); ok {
			if cfg.SDKURL == "" && isRUMScript(src) {
				cfg.SDKURL = src
			}
			return true
		}

		body, ok := rumInitBody(sel.Text())
		if !ok {
			return true
		}
		applyRUMKeys(&cfg, body)
		return cfg.ApplicationID == ""
	})

	if !cfg.Found() {
		return cfg, ErrRUMNotFound
	}
	return cfg, nil
}

func isRUMScript(src string) bool {
	lower := strings.ToLower(src)
	return strings.Contains(lower, "datadog-rum") || strings.Contains(lower, "browser-agent.com")
}

// rumInitBody returns the object literal passed to the first init call in script.
func rumInitBody(script string) (string, bool) {
	for _, call := range rumInitCalls {
		idx := strings.Index(script, call)
		if idx < 0 {
			continue
		}
		rest := script[idx+len(call):]
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			continue
		}
		if body, ok := balancedBraces(rest[start:]); ok {
			return body, true
		}
	}
	return "", false
}

// balancedBraces returns s up to and including the brace closing s[0],
// skipping braces inside string literals.
func balancedBraces(s string) (string, bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

func applyRUMKeys(cfg *model.RUMConfig, body string) {
	for _, m := range rumStringKey.FindAllStringSubmatch(body, -1) {
		value := m[2] + m[3] + m[4]
		switch m[1] {
		case "applicationId":
			setOnce(&cfg.ApplicationID, value)
		case "clientToken":
			setOnce(&cfg.ClientToken, value)
		case "site":
			setOnce(&cfg.Site, value)
		case "service":
			setOnce(&cfg.Service, value)
		case "env":
			setOnce(&cfg.Env, value)
		case "version":
			setOnce(&cfg.Version, value)
		}
	}
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
