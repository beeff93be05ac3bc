package githubrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v56/github"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub API for one repository. Reads work with whatever
// access the token grants (or anonymously on public repos); writes are gated
// on an explicit permission check first.
type Client struct {
	client *github.Client
	owner  string
	repo   string
	token  string
	debug  bool
}

func NewClient(token, owner, repo string, debug bool) *Client {
	var client *github.Client

	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(context.Background(), ts)
		client = github.NewClient(tc)
	} else {
		client = github.NewClient(nil)
	}

	return &Client{
		client: client,
		owner:  owner,
		repo:   repo,
		token:  token,
		debug:  debug,
	}
}

func (c *Client) Owner() string { return c.owner }
func (c *Client) Repo() string  { return c.repo }

// HasToken reports whether a token was configured. Callers must check this
// before attempting writes; a missing token is CredentialsMissing, not a
// permission level.
func (c *Client) HasToken() bool { return c.token != "" }

// DefaultBranch returns the repository's default branch and its current head
// commit SHA. Fetched fresh on every call; nothing is cached across runs.
func (c *Client) DefaultBranch(ctx context.Context) (branch, headSHA string, err error) {
	repo, resp, err := c.client.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return "", "", c.unreachable("get repository", resp, err)
	}

	branch = repo.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}

	br, resp, err := c.client.Repositories.GetBranch(ctx, c.owner, c.repo, branch, 3)
	if err != nil {
		return "", "", c.unreachable("get branch "+branch, resp, err)
	}

	if c.debug {
		fmt.Printf("[github] %s/%s default branch %s at %s\n", c.owner, c.repo, branch, br.GetCommit().GetSHA())
	}

	return branch, br.GetCommit().GetSHA(), nil
}

// ListRootFiles returns the file and directory names at the repository root
// on the given ref. Used to tell "file is missing" apart from "file exists
// but could not be read".
func (c *Client) ListRootFiles(ctx context.Context, ref string) (map[string]bool, error) {
	_, entries, resp, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, "", &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, c.unreachable("list root contents", resp, err)
	}

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.GetName()] = true
	}
	return names, nil
}

// FetchFileRaw returns the decoded content of path at ref. ok is false when
// the fetch failed for any reason (404, transient error, bad credentials);
// callers must treat that as "unknown", not "absent", and consult
// ListRootFiles to disambiguate.
func (c *Client) FetchFileRaw(ctx context.Context, path, ref string) (content string, ok bool) {
	file, _, _, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil || file == nil {
		if c.debug {
			fmt.Printf("[github] fetch %s@%s failed: %v\n", path, ref, err)
		}
		return "", false
	}

	decoded, err := file.GetContent()
	if err != nil {
		if c.debug {
			fmt.Printf("[github] decode %s@%s failed: %v\n", path, ref, err)
		}
		return "", false
	}
	return decoded, true
}

// PermissionLevel returns the token's access level on the repository:
// admin, maintain, write, triage, read, or none.
func (c *Client) PermissionLevel(ctx context.Context) (string, error) {
	repo, resp, err := c.client.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return "none", c.unreachable("get repository permissions", resp, err)
	}

	perms := repo.GetPermissions()
	switch {
	case perms["admin"]:
		return "admin", nil
	case perms["maintain"]:
		return "maintain", nil
	case perms["push"]:
		return "write", nil
	case perms["triage"]:
		return "triage", nil
	case perms["pull"]:
		return "read", nil
	default:
		return "none", nil
	}
}

// CanPush reports whether level grants push access.
func CanPush(level string) bool {
	switch level {
	case "admin", "maintain", "write":
		return true
	}
	return false
}

func (c *Client) unreachable(op string, resp *github.Response, err error) error {
	ue := &UnreachableError{Op: op, Err: err}
	if resp != nil {
		ue.Status = resp.StatusCode
	}
	if ge, isGH := err.(*github.ErrorResponse); isGH {
		ue.Body = truncate(ge.Message, 200)
	}
	return ue
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
