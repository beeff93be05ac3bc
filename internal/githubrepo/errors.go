package githubrepo

import (
	"errors"
	"fmt"
)

// ErrCredentialsMissing means no GitHub token is configured. Read-only
// analysis may still work against a public repository; writes never will.
var ErrCredentialsMissing = errors.New("no GitHub token configured")

// UnreachableError reports a failed read against the GitHub API, carrying
// enough of the response to diagnose auth vs. network vs. not-found.
type UnreachableError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *UnreachableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("github %s failed: status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("github %s failed: %v", e.Op, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// PermissionError means the token authenticated but lacks push rights on the
// target repository.
type PermissionError struct {
	Level string // detected level: admin, maintain, write, triage, read, none
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("token lacks push permission on repository (detected level: %s)", e.Level)
}

// Commit steps, in execution order. A CommitError names the step that broke
// so a partial write is never mistaken for a finished one.
const (
	StepBlob      = "blob_creation"
	StepTree      = "tree_creation"
	StepCommit    = "commit_creation"
	StepRefUpdate = "ref_update"
)

// CommitError reports which step of the blob→tree→commit→ref sequence failed.
type CommitError struct {
	Step string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit aborted at %s: %v", e.Step, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// ErrVerificationFailed means the ref update was accepted but re-reading the
// file shows the expected content is not on the branch. Branch protection
// rules can silently reject or rewrite a force update after returning 2xx.
var ErrVerificationFailed = errors.New("post-commit verification failed: re-fetched file does not match what was written")
