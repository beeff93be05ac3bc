package coolify

// Server is a registered compute node in the orchestrator.
type Server struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	IP          string `json:"ip"`
	Description string `json:"description,omitempty"`
}

// Project groups applications in the orchestrator.
type Project struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Application is the orchestrator's unit of deployment: one git source bound
// to one build configuration and one compute node.
type Application struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	FQDN   string `json:"fqdn,omitempty"`
	Status string `json:"status,omitempty"`
}

// CreateApplicationRequest is the payload for the public-repo application
// creation endpoint. The creation endpoint does not accept every build
// parameter; the rest goes in a follow-up PATCH (BuildConfig).
type CreateApplicationRequest struct {
	ProjectUUID   string `json:"project_uuid"`
	ServerUUID    string `json:"server_uuid"`
	Environment   string `json:"environment_name"`
	GitRepository string `json:"git_repository"`
	GitBranch     string `json:"git_branch"`
	BuildPack     string `json:"build_pack"`
	PortsExposes  string `json:"ports_exposes"`
	Name          string `json:"name,omitempty"`
	Domains       string `json:"domains,omitempty"`
	InstantDeploy bool   `json:"instant_deploy"`
}

// BuildConfig is the build-parameter PATCH applied after creation.
type BuildConfig struct {
	BaseDirectory      string `json:"base_directory,omitempty"`
	DockerfileLocation string `json:"dockerfile_location,omitempty"`
	PortsExposes       string `json:"ports_exposes,omitempty"`
	BuildPack          string `json:"build_pack,omitempty"`
	GitBranch          string `json:"git_branch,omitempty"`
}

// EnvVar is one environment variable on an application. Build-time variables
// are made available during the image build, not only at runtime.
type EnvVar struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	IsBuildTime bool   `json:"is_build_time"`
	IsPreview   bool   `json:"is_preview"`
}
