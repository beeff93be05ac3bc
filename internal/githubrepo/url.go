package githubrepo

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	httpsRepoRe = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`)
	sshRepoRe   = regexp.MustCompile(`^git@github\.com:([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?$`)
	shortRepoRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)$`)
)

// ParseRepoURL extracts owner and repo from a GitHub URL. Accepts https URLs
// (with or without scheme and .git suffix), ssh remotes, and bare
// "owner/repo" shorthand.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", fmt.Errorf("empty repository URL")
	}

	for _, re := range []*regexp.Regexp{httpsRepoRe, sshRepoRe, shortRepoRe} {
		if m := re.FindStringSubmatch(s); len(m) == 3 {
			return m[1], m[2], nil
		}
	}

	return "", "", fmt.Errorf("could not parse GitHub repository from %q (expected https://github.com/owner/repo or owner/repo)", raw)
}

// CloneURL returns the https clone URL for owner/repo. When token is
// non-empty it is embedded as basic-auth credentials so an orchestrator can
// pull a private repository without the user's personal token.
func CloneURL(owner, repo, token string) string {
	if token != "" {
		return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", token, owner, repo)
	}
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
}
