package model

// RUMConfig is the browser RUM SDK configuration found on a page.
type RUMConfig struct {
	ApplicationID string `json:"applicationId"`
	ClientToken   string `json:"clientToken"`
	Site          string `json:"site"`
	Service       string `json:"service"`
	Env           string `json:"env"`
	Version       string `json:"version"`
	SDKURL        string `json:"sdkURL"`
}

// Found reports whether any part of the configuration was detected.
func (c RUMConfig) Found() bool {
	return c != RUMConfig{}
}
