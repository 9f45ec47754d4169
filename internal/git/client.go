// Package git checks project repositories out into the build workspace.
package git

import (
	"context"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/observability"
)

// Client handles repository checkout operations.
type Client struct {
	depth int // shallow clone depth, zero for full history
}

// NewClient creates a git client. depth > 0 enables shallow clones.
func NewClient(depth int) *Client {
	return &Client{depth: depth}
}

// Checkout clones url at ref into targetDir and returns the resolved commit
// hash. ref may be a branch or tag name; empty means the remote default.
func (c *Client) Checkout(ctx context.Context, url, ref, targetDir string) (string, error) {
	if err := os.RemoveAll(targetDir); err != nil {
		return "", derrors.WorkspaceError("clean checkout target", err)
	}

	opts := &gogit.CloneOptions{URL: url, Depth: c.depth}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
		opts.SingleBranch = true
	}

	observability.DebugContext(ctx, "Cloning project repository",
		logfields.URL(url), logfields.Ref(ref), logfields.Path(targetDir))

	repo, err := gogit.PlainCloneContext(ctx, targetDir, false, opts)
	if err != nil && ref != "" && isUnknownRef(err) {
		// The ref may be a tag rather than a branch.
		opts.ReferenceName = plumbing.NewTagReferenceName(ref)
		repo, err = gogit.PlainCloneContext(ctx, targetDir, false, opts)
	}
	if err != nil {
		return "", classifyCloneError(url, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", derrors.CheckoutFailed(url, err)
	}

	commit := head.Hash().String()
	observability.InfoContext(ctx, "Project checked out",
		logfields.URL(url), logfields.Ref(ref))
	return commit, nil
}

func isUnknownRef(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "reference not found") || strings.Contains(msg, "couldn't find remote ref")
}

// classifyCloneError maps go-git failures onto error categories so the retry
// policy can tell transient network trouble from permanent misconfiguration.
func classifyCloneError(url string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "auth fail") ||
		strings.Contains(msg, "invalid username or password"):
		return derrors.CheckoutFailed(url, err).WithContext("reason", "authentication")
	case strings.Contains(msg, "not found") ||
		strings.Contains(msg, "repository does not exist") ||
		strings.Contains(msg, "reference not found"):
		return derrors.CheckoutFailed(url, err).WithContext("reason", "not found")
	case strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "temporary failure") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests"):
		return derrors.WrapRetryable(err, derrors.CategoryNetwork, derrors.SeverityError, "transient checkout failure").
			WithContext("url", url)
	default:
		return derrors.CheckoutFailed(url, err)
	}
}
