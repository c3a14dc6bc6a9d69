// GitHub issue tracker adapter using google/go-github.
//
// Information Hiding:
// - GitHub API authentication
// - Search query syntax for the dedup lookup

package report

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
)

// GitHubTracker implements Tracker against a single repository.
type GitHubTracker struct {
	client *github.Client
	owner  string
	repo   string
	label  string
}

// NewGitHubTracker creates a tracker for owner/repo. The label scopes the
// duplicate search to auto-reported issues.
func NewGitHubTracker(token, owner, repo, label string) *GitHubTracker {
	return &GitHubTracker{
		client: github.NewClient(nil).WithAuthToken(token),
		owner:  owner,
		repo:   repo,
		label:  label,
	}
}

// Search returns the number of open, labeled issues containing the
// fingerprint.
func (t *GitHubTracker) Search(ctx context.Context, fingerprint string) (int, error) {
	query := fmt.Sprintf(`repo:%s/%s is:issue is:open label:%q %q`,
		t.owner, t.repo, t.label, fingerprint)

	result, _, err := t.client.Search.Issues(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("issue search failed: %w", err)
	}
	return result.GetTotal(), nil
}

// Create opens a new issue.
func (t *GitHubTracker) Create(ctx context.Context, title, body string, labels []string) error {
	_, _, err := t.client.Issues.Create(ctx, t.owner, t.repo, &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(body),
		Labels: &labels,
	})
	if err != nil {
		return fmt.Errorf("issue creation failed: %w", err)
	}
	return nil
}

// Verify GitHubTracker implements Tracker
var _ Tracker = (*GitHubTracker)(nil)
