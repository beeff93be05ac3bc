package githubrepo

import (
	"context"
	"fmt"

	"github.com/google/go-github/v56/github"
)

// FileChange is one path/content pair in a commit write set.
type FileChange struct {
	Path    string
	Content string
}

// CommitRequest describes one commit layered over an existing head.
type CommitRequest struct {
	Branch  string
	BaseSHA string
	Message string
	Files   []FileChange
}

// CommitFiles writes req.Files as a single commit on req.Branch using the
// low-level Git data API: resolve the base tree, create a blob per file,
// create a tree layering the blobs over the base (untouched files survive),
// create a commit with the base as parent, then force-update the branch ref.
// The chain aborts on the first failure and the returned CommitError names
// the step, so a partial write is never reported as success. The ref update
// returning 2xx still does not prove the content landed — callers must
// follow up with Verify.
func (c *Client) CommitFiles(ctx context.Context, req CommitRequest) (newSHA string, err error) {
	if !c.HasToken() {
		return "", ErrCredentialsMissing
	}
	if len(req.Files) == 0 {
		return "", fmt.Errorf("empty write set")
	}

	level, err := c.PermissionLevel(ctx)
	if err != nil {
		return "", err
	}
	if !CanPush(level) {
		return "", &PermissionError{Level: level}
	}

	baseCommit, _, err := c.client.Git.GetCommit(ctx, c.owner, c.repo, req.BaseSHA)
	if err != nil {
		return "", &UnreachableError{Op: "resolve base commit " + req.BaseSHA, Err: err}
	}
	baseTreeSHA := baseCommit.GetTree().GetSHA()

	entries := make([]*github.TreeEntry, 0, len(req.Files))
	for _, f := range req.Files {
		blob, _, err := c.client.Git.CreateBlob(ctx, c.owner, c.repo, &github.Blob{
			Content:  github.String(f.Content),
			Encoding: github.String("utf-8"),
		})
		if err != nil {
			return "", &CommitError{Step: StepBlob, Err: fmt.Errorf("blob for %s: %w", f.Path, err)}
		}
		entries = append(entries, &github.TreeEntry{
			Path: github.String(f.Path),
			Mode: github.String("100644"),
			Type: github.String("blob"),
			SHA:  blob.SHA,
		})
	}

	tree, _, err := c.client.Git.CreateTree(ctx, c.owner, c.repo, baseTreeSHA, entries)
	if err != nil {
		return "", &CommitError{Step: StepTree, Err: err}
	}

	commit, _, err := c.client.Git.CreateCommit(ctx, c.owner, c.repo, &github.Commit{
		Message: github.String(req.Message),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: github.String(req.BaseSHA)}},
	}, nil)
	if err != nil {
		return "", &CommitError{Step: StepCommit, Err: err}
	}

	_, _, err = c.client.Git.UpdateRef(ctx, c.owner, c.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + req.Branch),
		Object: &github.GitObject{SHA: commit.SHA},
	}, true)
	if err != nil {
		return "", &CommitError{Step: StepRefUpdate, Err: err}
	}

	if c.debug {
		fmt.Printf("[github] committed %d file(s) to %s as %s\n", len(req.Files), req.Branch, commit.GetSHA())
	}

	return commit.GetSHA(), nil
}

// Verify re-fetches path on branch and runs check against the fetched
// content. A ref update the host accepted can still be rejected or rewritten
// by a branch-protection rule, so a write is only confirmed once this second
// read passes. The fetched content is returned so callers can report exactly
// what was verified rather than reading the file a third time.
func (c *Client) Verify(ctx context.Context, path, branch string, check func(content string) bool) (string, error) {
	content, ok := c.FetchFileRaw(ctx, path, branch)
	if !ok {
		return "", fmt.Errorf("%w: could not re-fetch %s on %s", ErrVerificationFailed, path, branch)
	}
	if !check(content) {
		return content, fmt.Errorf("%w: %s on %s", ErrVerificationFailed, path, branch)
	}
	return content, nil
}
