package models

import "encoding/json"

// APIEndpoint is one third-party API operation in api_endpoints
type APIEndpoint struct {
	ID          int64           `json:"id,omitempty" yaml:"-"`
	Service     string          `json:"service" yaml:"-"`
	Resource    string          `json:"resource" yaml:"resource"`
	Action      string          `json:"action" yaml:"action"`
	Method      string          `json:"method" yaml:"method"`
	Path        string          `json:"path" yaml:"path"`
	Description string          `json:"description,omitempty" yaml:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty" yaml:"-"`
	AuthType    string          `json:"auth_type,omitempty" yaml:"-"`
	AuthKey     string          `json:"auth_key,omitempty" yaml:"-"`
	RateLimit   int             `json:"rate_limit,omitempty" yaml:"-"`
}

// EndpointCatalog is the YAML file shape describing one service's endpoints
type EndpointCatalog struct {
	Service   string            `yaml:"service"`
	BaseURL   string            `yaml:"base_url"`
	AuthType  string            `yaml:"auth_type"`
	AuthKey   string            `yaml:"auth_key"`
	RateLimit int               `yaml:"rate_limit"`
	Endpoints []CatalogEndpoint `yaml:"endpoints"`
}

// CatalogEndpoint is an endpoint entry inside a catalog; service-wide auth and
// rate limit settings apply unless overridden
type CatalogEndpoint struct {
	APIEndpoint `yaml:",inline"`
	Parameters  map[string]interface{} `yaml:"parameters"`
	AuthType    string                 `yaml:"auth_type"`
	RateLimit   int                    `yaml:"rate_limit"`
}

// Rows flattens the catalog into api_endpoints rows
func (c *EndpointCatalog) Rows() ([]APIEndpoint, error) {
	rows := make([]APIEndpoint, 0, len(c.Endpoints))
	for _, e := range c.Endpoints {
		row := e.APIEndpoint
		row.Service = c.Service
		row.AuthType = c.AuthType
		row.AuthKey = c.AuthKey
		row.RateLimit = c.RateLimit
		if e.AuthType != "" {
			row.AuthType = e.AuthType
		}
		if e.RateLimit > 0 {
			row.RateLimit = e.RateLimit
		}
		if e.Parameters != nil {
			data, err := json.Marshal(e.Parameters)
			if err != nil {
				return nil, err
			}
			row.Parameters = data
		}
		rows = append(rows, row)
	}
	return rows, nil
}
