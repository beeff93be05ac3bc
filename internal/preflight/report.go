package preflight

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/liberate-sh/liberate/internal/coolify"
	"github.com/liberate-sh/liberate/internal/dockerfile"
)

// Dockerfile status values reported by the coordinator.
const (
	StatusExistsValid = "exists_valid"
	StatusExistsFixed = "exists_fixed"
	StatusGenerated   = "generated"
	StatusMissing     = "missing"
	StatusInvalid     = "invalid"
	StatusFetchFailed = "github_fetch_failed"
)

// Check names used as keys in Report.Checks.
const (
	CheckCoolifyConnection  = "coolify_connection"
	CheckCoolifyServers     = "coolify_servers"
	CheckGitHubAccess       = "github_access"
	CheckGitHubWriteAccess  = "github_write_access"
	CheckPackageJSON        = "package_json"
	CheckDockerfile         = "dockerfile"
	CheckDockerfileVerified = "dockerfile_verified"
	CheckEnvVars            = "env_vars"
)

// requiredChecks gate readiness. Write access is deliberately not in here:
// it only matters when a repair is needed, and the repair path raises its
// own blocking error in that case.
var requiredChecks = []string{
	CheckCoolifyConnection,
	CheckCoolifyServers,
	CheckGitHubAccess,
	CheckPackageJSON,
	CheckDockerfile,
	CheckDockerfileVerified,
}

// DockerfileProof carries the line-number evidence behind a validity
// judgment, so "not ready" always says which lines are wrong.
type DockerfileProof struct {
	RawContent      string `json:"raw_content"`
	CopyPackageLine int    `json:"copy_package_line,omitempty"`
	NpmInstallLine  int    `json:"npm_install_line,omitempty"`
	IsValid         bool   `json:"is_valid"`
}

// GitHubInfo summarizes repository access for the report consumer.
type GitHubInfo struct {
	Owner              string `json:"owner"`
	Repo               string `json:"repo"`
	HasWritePermission bool   `json:"has_write_permission"`
	PermissionLevel    string `json:"permission_level"`
	DockerfileFetched  bool   `json:"dockerfile_fetched"`
}

// EnvVarNeeded is one environment variable the deployment will want, with a
// suggested default from configuration. Presence is enumerated, not
// verified.
type EnvVarNeeded struct {
	Key            string `json:"key"`
	SuggestedValue string `json:"suggested_value,omitempty"`
	IsBuildTime    bool   `json:"is_build_time"`
}

// Report is the aggregate pre-deploy result. Constructed fresh per run and
// always returned, even on partial failure, so the caller can show which
// specific check failed.
type Report struct {
	RunID            string           `json:"run_id"`
	Ready            bool             `json:"ready"`
	ActionsTaken     []string         `json:"actions_taken"`
	Warnings         []string         `json:"warnings"`
	BlockingErrors   []string         `json:"blocking_errors"`
	Checks           map[string]bool  `json:"checks"`
	DockerfileStatus string           `json:"dockerfile_status"`
	DockerfileProof  *DockerfileProof `json:"dockerfile_proof,omitempty"`
	GitHubInfo       *GitHubInfo      `json:"github_info,omitempty"`
	CommitSHA        string           `json:"commit_sha,omitempty"`
	Branch           string           `json:"branch,omitempty"`
	EnvVarsNeeded    []EnvVarNeeded   `json:"env_vars_needed"`
	CoolifyVersion   string           `json:"coolify_version,omitempty"`

	// Provision is present only when the run continued into application
	// provisioning after all checks passed.
	Provision *coolify.ProvisionResult `json:"provision,omitempty"`
}

func newReport(runID string) *Report {
	return &Report{
		RunID:          runID,
		ActionsTaken:   []string{},
		Warnings:       []string{},
		BlockingErrors: []string{},
		Checks:         map[string]bool{},
		EnvVarsNeeded:  []EnvVarNeeded{},
	}
}

func (r *Report) block(msg string) {
	r.BlockingErrors = append(r.BlockingErrors, msg)
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Report) action(msg string) {
	r.ActionsTaken = append(r.ActionsTaken, msg)
}

// finalize computes readiness: every required check passed and nothing
// blocking was recorded.
func (r *Report) finalize() {
	r.Ready = len(r.BlockingErrors) == 0
	for _, name := range requiredChecks {
		if !r.Checks[name] {
			r.Ready = false
		}
	}
}

func proofFrom(content string, a dockerfile.Analysis) *DockerfileProof {
	return &DockerfileProof{
		RawContent:      content,
		CopyPackageLine: a.CopyPackageLine,
		NpmInstallLine:  a.InstallLine,
		IsValid:         a.Valid,
	}
}

var titleCaser = cases.Title(language.English)

// Summary renders a short human-readable view of the report for terminal
// output; the full JSON is the machine contract.
func (r *Report) Summary() string {
	var b strings.Builder

	if r.Ready {
		b.WriteString("Ready to deploy.\n")
	} else {
		b.WriteString("Not ready to deploy.\n")
	}

	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mark := "FAIL"
		if r.Checks[name] {
			mark = "ok"
		}
		human := titleCaser.String(strings.ReplaceAll(name, "_", " "))
		b.WriteString(fmt.Sprintf("  [%-4s] %s\n", mark, human))
	}

	if r.DockerfileStatus != "" {
		b.WriteString("  Dockerfile: " + r.DockerfileStatus + "\n")
	}
	for _, a := range r.ActionsTaken {
		b.WriteString("  + " + a + "\n")
	}
	for _, w := range r.Warnings {
		b.WriteString("  ! " + w + "\n")
	}
	for _, e := range r.BlockingErrors {
		b.WriteString("  x " + e + "\n")
	}

	return b.String()
}
