// Package preflight runs the pre-deploy check sequence: orchestrator
// reachability, compute nodes, repository access, manifest and Dockerfile
// validation (with optional in-place repair), and required env var
// enumeration. It never lets an external failure escape as an error; every
// run produces a Report saying exactly which check failed and why.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/liberate-sh/liberate/internal/coolify"
	"github.com/liberate-sh/liberate/internal/dockerfile"
	"github.com/liberate-sh/liberate/internal/githubrepo"
)

// DefaultBudget bounds one whole run. The orchestrator has a habit of
// hanging behind slow reverse proxies; a run must never strand its caller.
const DefaultBudget = 120 * time.Second

// Source is the repository access the coordinator needs. Satisfied by
// *githubrepo.Client; narrowed to an interface so tests can fake the host.
type Source interface {
	Owner() string
	Repo() string
	HasToken() bool
	DefaultBranch(ctx context.Context) (branch, headSHA string, err error)
	ListRootFiles(ctx context.Context, ref string) (map[string]bool, error)
	FetchFileRaw(ctx context.Context, path, ref string) (content string, ok bool)
	PermissionLevel(ctx context.Context) (string, error)
	CommitFiles(ctx context.Context, req githubrepo.CommitRequest) (string, error)
	Verify(ctx context.Context, path, branch string, check func(string) bool) (string, error)
}

// Orchestrator is the slice of the Coolify API the coordinator probes.
type Orchestrator interface {
	BaseURL() string
	CheckVersion(ctx context.Context) (string, error)
	ListServers(ctx context.Context) ([]coolify.Server, error)
}

// Provisioner creates and configures the application once every check has
// passed. Satisfied by *coolify.Client.
type Provisioner interface {
	Provision(ctx context.Context, req coolify.ProvisionRequest) (*coolify.ProvisionResult, error)
}

// Request configures one coordinator run. When ProjectName is set (and a
// Provisioner given), a run whose checks all pass continues into
// application provisioning; otherwise the run stops at the readiness
// verdict.
type Request struct {
	Source            Source
	Orchestrator      Orchestrator
	Port              int
	EnvVars           map[string]string // caller-supplied values
	EnvDefaults       map[string]string // server-side suggested defaults
	SkipDockerfileFix bool
	Budget            time.Duration

	Provisioner Provisioner
	ProjectName string
	Domain      string
	DeployToken string // platform-level token embedded in the clone URL
	AutoDeploy  bool
}

var lockfileNames = []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "bun.lockb"}

// Run executes the fixed check sequence and returns the aggregate report.
// Steps run strictly in order because each later step consumes the literal
// outputs of an earlier one (branch, head SHA, permission level). Re-running
// against an already-valid Dockerfile is a no-op: validity is detected and
// no duplicate commit is made.
func Run(ctx context.Context, req Request) *Report {
	r := newReport(uuid.NewString())

	budget := req.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	// Orchestrator connectivity gates everything: with no orchestrator there
	// is nothing to deploy to and nothing else is worth reporting on.
	version, err := req.Orchestrator.CheckVersion(ctx)
	if err != nil {
		r.Checks[CheckCoolifyConnection] = false
		r.block(fmt.Sprintf("cannot reach orchestrator at %s: %v", req.Orchestrator.BaseURL(), err))
		r.finalize()
		return r
	}
	r.Checks[CheckCoolifyConnection] = true
	r.CoolifyVersion = version

	nodes, err := req.Orchestrator.ListServers(ctx)
	if err != nil {
		r.Checks[CheckCoolifyServers] = false
		if errors.Is(err, coolify.ErrNoServers) {
			r.block("orchestrator has no compute nodes available; register a server before deploying")
		} else {
			r.block(fmt.Sprintf("could not list orchestrator compute nodes: %v", err))
		}
		// Diagnostics on the repository side still have value; keep going.
	} else {
		r.Checks[CheckCoolifyServers] = true
	}

	runRepoChecks(ctx, req, r)
	enumerateEnvVars(req, r)

	r.finalize()

	if r.Ready && req.Provisioner != nil && req.ProjectName != "" {
		runProvisioning(ctx, req, r, nodes)
		r.finalize()
	}

	return r
}

// runProvisioning hands off to the Application Provisioner after every
// required check has passed. Creation failures block deployment; degraded
// best-effort sub-steps land in the step list without flipping readiness.
func runProvisioning(ctx context.Context, req Request, r *Report, nodes []coolify.Server) {
	envVars := make([]coolify.EnvVar, 0, len(r.EnvVarsNeeded))
	for _, v := range r.EnvVarsNeeded {
		envVars = append(envVars, coolify.EnvVar{
			Key:         v.Key,
			Value:       v.SuggestedValue,
			IsBuildTime: v.IsBuildTime,
		})
	}

	result, err := req.Provisioner.Provision(ctx, coolify.ProvisionRequest{
		ProjectName: req.ProjectName,
		RepoGitURL:  githubrepo.CloneURL(req.Source.Owner(), req.Source.Repo(), req.DeployToken),
		Branch:      r.Branch,
		ServerUUID:  nodes[0].UUID,
		Port:        req.Port,
		Domain:      req.Domain,
		EnvVars:     envVars,
		AutoDeploy:  req.AutoDeploy,
	})
	r.Provision = result
	if err != nil {
		r.block(fmt.Sprintf("provisioning failed: %v", err))
		return
	}

	r.action(fmt.Sprintf("provisioned application %s in project %s", result.ApplicationUUID, req.ProjectName))
	if result.DeployTriggered {
		r.action(fmt.Sprintf("triggered deployment %s", result.DeploymentUUID))
	}
}

func runRepoChecks(ctx context.Context, req Request, r *Report) {
	src := req.Source

	branch, headSHA, err := src.DefaultBranch(ctx)
	if err != nil {
		r.Checks[CheckGitHubAccess] = false
		r.block(fmt.Sprintf("repository unreachable: %v", err))
		return
	}
	r.Checks[CheckGitHubAccess] = true
	r.Branch = branch
	r.CommitSHA = headSHA

	info := &GitHubInfo{Owner: src.Owner(), Repo: src.Repo()}
	r.GitHubInfo = info

	level, err := src.PermissionLevel(ctx)
	if err != nil {
		level = "none"
		r.warn(fmt.Sprintf("could not determine repository permission level: %v", err))
	}
	info.PermissionLevel = level
	info.HasWritePermission = githubrepo.CanPush(level)
	r.Checks[CheckGitHubWriteAccess] = info.HasWritePermission

	rootFiles, err := src.ListRootFiles(ctx, branch)
	if err != nil {
		r.warn(fmt.Sprintf("could not list repository root: %v", err))
		rootFiles = map[string]bool{}
	}

	if rootFiles["package.json"] {
		r.Checks[CheckPackageJSON] = true
	} else {
		r.Checks[CheckPackageJSON] = false
		r.block("package.json not found at repository root; this does not look like a deployable Node.js app")
		// Dockerfile analysis still runs: its findings stay useful once the
		// manifest shows up.
	}

	hasLockfile := false
	for _, name := range lockfileNames {
		if rootFiles[name] {
			hasLockfile = true
			break
		}
	}
	if !hasLockfile {
		r.warn("no lockfile found (package-lock.json, yarn.lock, pnpm-lock.yaml); builds will not be reproducible")
	}

	runDockerfileCheck(ctx, req, r, branch, headSHA, rootFiles)
}

func runDockerfileCheck(ctx context.Context, req Request, r *Report, branch, headSHA string, rootFiles map[string]bool) {
	src := req.Source
	info := r.GitHubInfo

	content, fetched := src.FetchFileRaw(ctx, "Dockerfile", branch)
	info.DockerfileFetched = fetched

	switch {
	case fetched:
		analysis := dockerfile.Analyze(content)
		r.DockerfileProof = proofFrom(content, analysis)

		if analysis.Valid {
			r.DockerfileStatus = StatusExistsValid
			r.Checks[CheckDockerfile] = true
			// Analysis on freshly fetched content is itself the verification.
			r.Checks[CheckDockerfileVerified] = true
			return
		}

		if req.SkipDockerfileFix {
			r.DockerfileStatus = StatusInvalid
			r.Checks[CheckDockerfile] = false
			r.Checks[CheckDockerfileVerified] = false
			r.block("Dockerfile is invalid and repair was skipped: " + analysis.Detail)
			return
		}

		fixed := dockerfile.Fix(content, req.Port)
		repairDockerfile(ctx, req, r, branch, headSHA, fixed, StatusExistsFixed,
			"fix Dockerfile: copy package.json before npm install")

	case rootFiles["Dockerfile"] || rootFiles["dockerfile"]:
		// Listed at root but the raw fetch failed: unknown content, not a
		// missing file. Repair would stomp on something we never read.
		r.DockerfileStatus = StatusFetchFailed
		r.Checks[CheckDockerfile] = false
		r.Checks[CheckDockerfileVerified] = false
		r.block("Dockerfile exists but could not be read (check token scope and repository visibility)")

	default:
		if req.SkipDockerfileFix {
			r.DockerfileStatus = StatusMissing
			r.Checks[CheckDockerfile] = false
			r.Checks[CheckDockerfileVerified] = false
			r.block("no Dockerfile at repository root and generation was skipped")
			return
		}

		generated := dockerfile.Generate(req.Port)
		repairDockerfile(ctx, req, r, branch, headSHA, generated, StatusGenerated,
			"add Dockerfile for container deployment")
	}
}

// repairDockerfile commits newContent (plus a .dockerignore companion) and
// confirms it landed by re-fetching and re-analyzing. Only a valid result on
// that second read marks the repair as done; a 2xx on the ref update alone
// proves nothing when branch protection can rewrite the branch afterwards.
func repairDockerfile(ctx context.Context, req Request, r *Report, branch, headSHA, newContent, successStatus, message string) {
	src := req.Source

	failedStatus := StatusInvalid
	if successStatus == StatusGenerated {
		failedStatus = StatusMissing
	}

	if !src.HasToken() {
		r.DockerfileStatus = failedStatus
		r.Checks[CheckDockerfile] = false
		r.Checks[CheckDockerfileVerified] = false
		r.block("Dockerfile needs repair but no GitHub token is configured for writes")
		return
	}
	if !r.GitHubInfo.HasWritePermission {
		r.DockerfileStatus = failedStatus
		r.Checks[CheckDockerfile] = false
		r.Checks[CheckDockerfileVerified] = false
		r.block(fmt.Sprintf("Dockerfile needs repair but the token lacks push permission (detected level: %s)", r.GitHubInfo.PermissionLevel))
		return
	}

	newSHA, err := src.CommitFiles(ctx, githubrepo.CommitRequest{
		Branch:  branch,
		BaseSHA: headSHA,
		Message: message,
		Files: []githubrepo.FileChange{
			{Path: "Dockerfile", Content: newContent},
			{Path: ".dockerignore", Content: dockerfile.GenerateDockerignore()},
		},
	})
	if err != nil {
		r.DockerfileStatus = failedStatus
		r.Checks[CheckDockerfile] = false
		r.Checks[CheckDockerfileVerified] = false
		r.block(fmt.Sprintf("Dockerfile repair failed: %v", err))
		return
	}
	r.CommitSHA = newSHA

	verified, err := src.Verify(ctx, "Dockerfile", branch, func(got string) bool {
		return dockerfile.Analyze(got).Valid
	})
	if err != nil {
		// The write looked accepted but the branch does not show a valid
		// recipe. Never report this as success.
		r.DockerfileStatus = failedStatus
		r.Checks[CheckDockerfile] = false
		r.Checks[CheckDockerfileVerified] = false
		r.block(fmt.Sprintf("Dockerfile repair could not be verified: %v", err))
		return
	}

	// The proof shows the exact bytes the verification read saw.
	r.DockerfileProof = proofFrom(verified, dockerfile.Analyze(verified))

	r.DockerfileStatus = successStatus
	r.Checks[CheckDockerfile] = true
	r.Checks[CheckDockerfileVerified] = true
	if successStatus == StatusGenerated {
		r.action(fmt.Sprintf("generated Dockerfile and committed %s", shortSHA(newSHA)))
	} else {
		r.action(fmt.Sprintf("fixed Dockerfile install ordering and committed %s", shortSHA(newSHA)))
	}
}

// enumerateEnvVars lists the variables the deployment will need, merging
// caller-supplied values over configured defaults. Presence on the target is
// not verified here; the provisioner injects them later.
func enumerateEnvVars(req Request, r *Report) {
	merged := map[string]string{}
	for k, v := range req.EnvDefaults {
		merged[k] = v
	}
	for k, v := range req.EnvVars {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		r.EnvVarsNeeded = append(r.EnvVarsNeeded, EnvVarNeeded{
			Key:            k,
			SuggestedValue: merged[k],
			IsBuildTime:    coolify.IsBuildTimeKey(k),
		})
	}
	r.Checks[CheckEnvVars] = true
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
