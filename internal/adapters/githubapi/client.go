// Package githubapi implements ports.Provider for GitHub. The adapter speaks
// to the REST API for discovery and metadata export; git transfer itself is
// the mirror adapter's job.
package githubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/pkg/log"
)

const perPage = 100

// Config selects the account to back up and which repository classes the
// listing includes.
type Config struct {
	Owner           string
	Token           string
	IncludePrivate  bool
	IncludeForks    bool
	IncludeArchived bool
}

// Client implements ports.Provider.
type Client struct {
	gh     *github.Client
	cfg    Config
	logger log.Logger
}

// New builds a Client. With a token the REST calls are authenticated and
// clone URLs carry the credential; without one only public data is reachable.
func New(cfg Config, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	gh := github.NewClient(nil)
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	return &Client{gh: gh, cfg: cfg, logger: logger}
}

// ListRepositories returns every repository of the configured owner that
// passes the inclusion filters. Organizations and user accounts are both
// supported; the org listing is tried first.
func (c *Client) ListRepositories(ctx context.Context) ([]domain.RepoDescriptor, error) {
	repos, err := c.listByOrg(ctx)
	if err != nil {
		var ghErr *github.ErrorResponse
		if !errors.As(err, &ghErr) || ghErr.Response == nil || ghErr.Response.StatusCode != 404 {
			return nil, mapError("list repositories", err)
		}
		repos, err = c.listByUser(ctx)
		if err != nil {
			return nil, mapError("list repositories", err)
		}
	}

	out := make([]domain.RepoDescriptor, 0, len(repos))
	for _, r := range repos {
		if desc, ok := c.toDescriptor(r); ok {
			out = append(out, desc)
		}
	}
	c.logger.Debug("listed repositories",
		log.String("owner", c.cfg.Owner),
		log.Int("total", len(repos)),
		log.Int("included", len(out)))
	return out, nil
}

func (c *Client) listByOrg(ctx context.Context) ([]*github.Repository, error) {
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var all []*github.Repository
	for {
		page, resp, err := c.gh.Repositories.ListByOrg(ctx, c.cfg.Owner, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) listByUser(ctx context.Context) ([]*github.Repository, error) {
	opts := &github.RepositoryListByUserOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var all []*github.Repository
	for {
		page, resp, err := c.gh.Repositories.ListByUser(ctx, c.cfg.Owner, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// toDescriptor applies the inclusion filters and fills the activity
// timestamp, falling back to the creation time for never-pushed repositories.
func (c *Client) toDescriptor(r *github.Repository) (domain.RepoDescriptor, bool) {
	switch {
	case r.GetPrivate() && !c.cfg.IncludePrivate,
		r.GetFork() && !c.cfg.IncludeForks,
		r.GetArchived() && !c.cfg.IncludeArchived:
		return domain.RepoDescriptor{}, false
	}

	pushedAt := r.GetPushedAt().Time
	if pushedAt.IsZero() {
		pushedAt = r.GetCreatedAt().Time
	}

	return domain.RepoDescriptor{
		Owner:    c.cfg.Owner,
		Name:     r.GetName(),
		PushedAt: pushedAt,
		Private:  r.GetPrivate(),
		Fork:     r.GetFork(),
		Archived: r.GetArchived(),
		HasWiki:  r.GetHasWiki(),
	}, true
}

// ExportIssues returns all issues of the repository, pull requests excluded,
// as one JSON document.
func (c *Client) ExportIssues(ctx context.Context, desc domain.RepoDescriptor) ([]byte, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var all []*github.Issue
	for {
		page, resp, err := c.gh.Issues.ListByRepo(ctx, desc.Owner, desc.Name, opts)
		if err != nil {
			return nil, mapError("export issues", err)
		}
		for _, issue := range page {
			// The issues endpoint also returns pull requests.
			if !issue.IsPullRequest() {
				all = append(all, issue)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return marshalExport(all)
}

// ExportPullRequests returns all pull requests as one JSON document.
func (c *Client) ExportPullRequests(ctx context.Context, desc domain.RepoDescriptor) ([]byte, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var all []*github.PullRequest
	for {
		page, resp, err := c.gh.PullRequests.List(ctx, desc.Owner, desc.Name, opts)
		if err != nil {
			return nil, mapError("export pull requests", err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return marshalExport(all)
}

// ExportReleases returns all releases as one JSON document.
func (c *Client) ExportReleases(ctx context.Context, desc domain.RepoDescriptor) ([]byte, error) {
	opts := &github.ListOptions{PerPage: perPage}
	var all []*github.RepositoryRelease
	for {
		page, resp, err := c.gh.Repositories.ListReleases(ctx, desc.Owner, desc.Name, opts)
		if err != nil {
			return nil, mapError("export releases", err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return marshalExport(all)
}

// CloneURL returns the https clone URL, with the token embedded when the
// client is authenticated so private repositories are reachable.
func (c *Client) CloneURL(desc domain.RepoDescriptor) string {
	if c.cfg.Token != "" {
		return fmt.Sprintf("https://%s@github.com/%s/%s.git", c.cfg.Token, desc.Owner, desc.Name)
	}
	return fmt.Sprintf("https://github.com/%s/%s.git", desc.Owner, desc.Name)
}

// WikiURL derives the wiki clone URL from the repository clone URL, or ""
// when the repository has no wiki enabled.
func (c *Client) WikiURL(desc domain.RepoDescriptor) string {
	if !desc.HasWiki {
		return ""
	}
	url := c.CloneURL(desc)
	return url[:len(url)-len(".git")] + ".wiki.git"
}

// marshalExport keeps exports stable and human-diffable: indented, and an
// empty slice serializes as [] rather than null.
func marshalExport[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.MarshalIndent(items, "", "  ")
}

// mapError converts rate-limit responses to the typed error the pipeline
// counts as a partial failure.
func mapError(op string, err error) error {
	var rate *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &rate) || errors.As(err, &abuse) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrRateLimited, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
