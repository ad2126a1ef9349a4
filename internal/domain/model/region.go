package model

// Region is a distinct vendor API endpoint. APIURL has no trailing slash.
type Region struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Site   string `json:"site"`
	APIURL string `json:"apiURL"`
}

// DefaultRegions returns the known regions in validation priority order.
func DefaultRegions() []Region {
	return []Region{
		{ID: "us1", Name: "US1", Site: "datadoghq.com", APIURL: "https://api.datadoghq.com"},
		{ID: "eu1", Name: "EU1", Site: "datadoghq.eu", APIURL: "https://api.datadoghq.eu"},
		{ID: "us3", Name: "US3", Site: "us3.datadoghq.com", APIURL: "https://api.us3.datadoghq.com"},
		{ID: "us5", Name: "US5", Site: "us5.datadoghq.com", APIURL: "https://api.us5.datadoghq.com"},
		{ID: "ap1", Name: "AP1", Site: "ap1.datadoghq.com", APIURL: "https://api.ap1.datadoghq.com"},
		{ID: "us1-fed", Name: "US1-FED", Site: "ddog-gov.com", APIURL: "https://api.ddog-gov.com"},
	}
}

// FindRegion returns the region with the given ID from regions.
func FindRegion(regions []Region, id string) (Region, bool) {
	for _, r := range regions {
		if r.ID == id {
			return r, true
		}
	}
	return Region{}, false
}
