package services

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

//go:embed catalogs/*.yaml
var builtinCatalogs embed.FS

// EndpointService maintains the api_endpoints catalog
type EndpointService struct {
	client *supabase.Client
	table  string
}

// NewEndpointService creates an endpoint catalog service
func NewEndpointService(client *supabase.Client) *EndpointService {
	return &EndpointService{client: client, table: models.TableAPIEndpoints}
}

// BuiltinCatalogs lists the embedded catalog names
func BuiltinCatalogs() []string {
	entries, _ := builtinCatalogs.ReadDir("catalogs")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// LoadCatalog resolves name as an embedded catalog, or else as a YAML file path
func LoadCatalog(name string) (*models.EndpointCatalog, error) {
	data, err := builtinCatalogs.ReadFile(path.Join("catalogs", name+".yaml"))
	if err != nil {
		data, err = os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("no built-in catalog %q and no such file: %w", name, err)
		}
	}

	var catalog models.EndpointCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", name, err)
	}
	if catalog.Service == "" {
		return nil, fmt.Errorf("catalog %s does not name a service", name)
	}
	return &catalog, nil
}

// Seed upserts every endpoint of catalog, keyed by service, resource and action
func (s *EndpointService) Seed(ctx context.Context, catalog *models.EndpointCatalog) (int, error) {
	rows, err := catalog.Rows()
	if err != nil {
		return 0, fmt.Errorf("failed to build rows for %s: %w", catalog.Service, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res, err := s.client.From(s.table).Upsert(ctx, rows, "service,resource,action")
	if err != nil {
		return 0, fmt.Errorf("failed to seed %s endpoints: %w", catalog.Service, err)
	}
	return res.Len(), nil
}

// Remove deletes every endpoint of service and returns how many went
func (s *EndpointService) Remove(ctx context.Context, service string) (int, error) {
	if service == "" {
		return 0, fmt.Errorf("service name is required")
	}
	res, err := s.client.From(s.table).Eq("service", service).Delete(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to remove %s endpoints: %w", service, err)
	}
	return res.Len(), nil
}

// List returns catalog rows, optionally for one service
func (s *EndpointService) List(ctx context.Context, service string) ([]models.APIEndpoint, error) {
	q := s.client.From(s.table).Order("service", true).Order("resource", true).Order("action", true)
	if service != "" {
		q = q.Eq("service", service)
	}
	res, err := q.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	var rows []models.APIEndpoint
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
