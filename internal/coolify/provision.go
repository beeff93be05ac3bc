package coolify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Step outcomes for best-effort provisioning sub-steps. Advisory means the
// step ran a weaker fallback whose effect is not verified; it must not be
// read as the full step succeeding.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeAdvisory = "advisory"
	OutcomeSkipped  = "skipped"
)

// StepResult records one provisioning sub-step, successful or not. Degraded
// best-effort steps show up here instead of disappearing into a log line.
type StepResult struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// ProvisionRequest describes the application to create or reuse.
type ProvisionRequest struct {
	ProjectName  string
	RepoGitURL   string
	Branch       string
	ServerUUID   string
	Port         int
	Domain       string
	EnvVars      []EnvVar
	AutoDeploy   bool
	BaseDir      string
	DockerfileAt string
}

// ProvisionResult is the outcome of one provisioning run.
type ProvisionResult struct {
	ProjectUUID     string       `json:"project_uuid"`
	ApplicationUUID string       `json:"application_uuid"`
	DeploymentUUID  string       `json:"deployment_uuid,omitempty"`
	DeployTriggered bool         `json:"deploy_triggered"`
	Steps           []StepResult `json:"steps"`
}

// EnsureProject finds a project by name or creates it, returning its UUID.
func (c *Client) EnsureProject(ctx context.Context, name string) (string, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range projects {
		if strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(name)) {
			return p.UUID, nil
		}
	}
	return c.CreateProject(ctx, name, "created by liberate")
}

// CreateApplication creates a dockerfile-build application bound to the
// project, compute node, and git source. Returns the new application UUID.
func (c *Client) CreateApplication(ctx context.Context, req CreateApplicationRequest) (string, error) {
	if req.Environment == "" {
		req.Environment = "production"
	}
	if req.BuildPack == "" {
		req.BuildPack = "dockerfile"
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/applications/public", req)
	if err != nil {
		return "", err
	}

	var created struct {
		UUID string `json:"uuid"`
	}
	if err := decode("create application", data, &created); err != nil {
		return "", err
	}
	if created.UUID == "" {
		return "", fmt.Errorf("create application: orchestrator returned no uuid")
	}
	return created.UUID, nil
}

// PatchBuildConfig applies the build parameters the creation endpoint does
// not accept. When the full patch fails it falls back to patching only
// git_branch; the fallback's success is advisory only — nothing verifies the
// minimal patch actually suffices.
func (c *Client) PatchBuildConfig(ctx context.Context, appUUID string, cfg BuildConfig) StepResult {
	_, err := c.doRequest(ctx, http.MethodPatch, "/applications/"+appUUID, cfg)
	if err == nil {
		return StepResult{Name: "build_config", Outcome: OutcomeOK}
	}

	if cfg.GitBranch != "" {
		fallback := BuildConfig{GitBranch: cfg.GitBranch}
		if _, fbErr := c.doRequest(ctx, http.MethodPatch, "/applications/"+appUUID, fallback); fbErr == nil {
			return StepResult{
				Name:    "build_config",
				Outcome: OutcomeAdvisory,
				Detail:  fmt.Sprintf("full patch failed (%v); git_branch-only fallback accepted, effect unverified", err),
			}
		}
	}

	return StepResult{Name: "build_config", Outcome: OutcomeFailed, Detail: err.Error()}
}

// SetEnvVars injects each variable with an individual call; the API has no
// bulk endpoint. Calls run in parallel since each one is independent, but
// the whole batch runs only after the build-config patch — both mutate the
// same application and the remote API does not guarantee ordering.
func (c *Client) SetEnvVars(ctx context.Context, appUUID string, vars []EnvVar) []StepResult {
	if len(vars) == 0 {
		return nil
	}

	results := make([]StepResult, len(vars))
	var wg sync.WaitGroup

	for i, v := range vars {
		wg.Add(1)
		go func(i int, v EnvVar) {
			defer wg.Done()
			name := "env:" + v.Key
			_, err := c.doRequest(ctx, http.MethodPost, "/applications/"+appUUID+"/envs", v)
			if err != nil {
				results[i] = StepResult{Name: name, Outcome: OutcomeFailed, Detail: err.Error()}
				return
			}
			detail := ""
			if v.IsBuildTime {
				detail = "build-time"
			}
			results[i] = StepResult{Name: name, Outcome: OutcomeOK, Detail: detail}
		}(i, v)
	}
	wg.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].Name < results[b].Name })
	return results
}

// Deploy triggers a build/deploy for the application and returns the
// deployment identifier the orchestrator hands back.
func (c *Client) Deploy(ctx context.Context, appUUID string) (string, error) {
	path := "/deploy?" + url.Values{"uuid": {appUUID}, "force": {"false"}}.Encode()
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Deployments []struct {
			Message        string `json:"message"`
			DeploymentUUID string `json:"deployment_uuid"`
		} `json:"deployments"`
	}
	if err := decode("trigger deploy", data, &resp); err != nil {
		return "", err
	}
	if len(resp.Deployments) == 0 {
		return "", fmt.Errorf("deploy trigger for %s returned no deployments", appUUID)
	}
	return resp.Deployments[0].DeploymentUUID, nil
}

// IsBuildTimeKey reports whether an env var key is conventionally needed at
// image build time (framework public variables baked into the bundle).
func IsBuildTimeKey(key string) bool {
	k := strings.ToUpper(strings.TrimSpace(key))
	return strings.HasPrefix(k, "NEXT_PUBLIC_") ||
		strings.HasPrefix(k, "VITE_") ||
		strings.HasPrefix(k, "REACT_APP_") ||
		strings.HasPrefix(k, "PUBLIC_")
}

// Provision runs the full creation sequence: ensure project, create
// application, patch build config, inject env vars, optionally deploy.
// Project and application creation failures abort; everything after is
// best-effort and recorded per step, since a partially configured
// application is still more useful than none.
func (c *Client) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	result := &ProvisionResult{}

	projectUUID, err := c.EnsureProject(ctx, req.ProjectName)
	if err != nil {
		return result, fmt.Errorf("ensure project %q: %w", req.ProjectName, err)
	}
	result.ProjectUUID = projectUUID
	result.Steps = append(result.Steps, StepResult{Name: "project", Outcome: OutcomeOK, Detail: projectUUID})

	port := req.Port
	if port <= 0 {
		port = 3000
	}

	appUUID, err := c.CreateApplication(ctx, CreateApplicationRequest{
		ProjectUUID:   projectUUID,
		ServerUUID:    req.ServerUUID,
		GitRepository: req.RepoGitURL,
		GitBranch:     req.Branch,
		BuildPack:     "dockerfile",
		PortsExposes:  fmt.Sprintf("%d", port),
		Name:          req.ProjectName,
		Domains:       req.Domain,
	})
	if err != nil {
		return result, fmt.Errorf("create application: %w", err)
	}
	result.ApplicationUUID = appUUID
	result.Steps = append(result.Steps, StepResult{Name: "application", Outcome: OutcomeOK, Detail: appUUID})

	dockerfileAt := req.DockerfileAt
	if dockerfileAt == "" {
		dockerfileAt = "/Dockerfile"
	}
	result.Steps = append(result.Steps, c.PatchBuildConfig(ctx, appUUID, BuildConfig{
		BaseDirectory:      req.BaseDir,
		DockerfileLocation: dockerfileAt,
		PortsExposes:       fmt.Sprintf("%d", port),
		BuildPack:          "dockerfile",
		GitBranch:          req.Branch,
	}))

	result.Steps = append(result.Steps, c.SetEnvVars(ctx, appUUID, req.EnvVars)...)

	if req.AutoDeploy {
		deploymentUUID, err := c.Deploy(ctx, appUUID)
		if err != nil {
			result.Steps = append(result.Steps, StepResult{Name: "deploy", Outcome: OutcomeFailed, Detail: err.Error()})
		} else {
			result.DeploymentUUID = deploymentUUID
			result.DeployTriggered = true
			result.Steps = append(result.Steps, StepResult{Name: "deploy", Outcome: OutcomeOK, Detail: deploymentUUID})
		}
	} else {
		result.Steps = append(result.Steps, StepResult{Name: "deploy", Outcome: OutcomeSkipped, Detail: "auto-deploy disabled; trigger manually"})
	}

	return result, nil
}
