package coolify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// CheckVersion verifies the orchestrator is reachable and the token is
// valid. Returns the reported version string.
func (c *Client) CheckVersion(ctx context.Context) (string, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/version", nil)
	if err != nil {
		return "", err
	}

	// The version endpoint answers with a bare string, sometimes JSON-quoted.
	// An HTML body here means a proxy answered instead of the orchestrator.
	version := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if version == "" || strings.HasPrefix(version, "<") {
		return "", &ResponseFormatError{Op: "get version", Excerpt: excerpt(data)}
	}

	if c.debug {
		fmt.Printf("[coolify] version %s at %s\n", version, c.baseURL)
	}
	return version, nil
}

// ListServers returns the orchestrator's registered compute nodes. An empty
// list is ErrNoServers: there is nowhere to deploy to.
func (c *Client) ListServers(ctx context.Context) ([]Server, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/servers", nil)
	if err != nil {
		return nil, err
	}

	var servers []Server
	if err := decode("list servers", data, &servers); err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	return servers, nil
}

// ListProjects returns all projects visible to the token.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/projects", nil)
	if err != nil {
		return nil, err
	}

	var projects []Project
	if err := decode("list projects", data, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a new project and returns its UUID.
func (c *Client) CreateProject(ctx context.Context, name, description string) (string, error) {
	body := map[string]string{
		"name":        name,
		"description": description,
	}
	data, err := c.doRequest(ctx, http.MethodPost, "/projects", body)
	if err != nil {
		return "", err
	}

	var created struct {
		UUID string `json:"uuid"`
	}
	if err := decode("create project", data, &created); err != nil {
		return "", err
	}
	if created.UUID == "" {
		return "", fmt.Errorf("create project %q: orchestrator returned no uuid", name)
	}
	return created.UUID, nil
}
