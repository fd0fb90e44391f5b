package forge

import (
	"context"
	"fmt"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/orgsync/internal/domain"
)

// githubClient implements Client using the GitHub API
type githubClient struct {
	client      *github.Client
	rateLimiter RateLimiter

	// org login -> numeric ID, filled on first team listing
	orgIDs map[string]int64
}

// NewGitHubClient creates a new GitHub forge client. baseURL selects a
// GitHub Enterprise instance; leave it empty for github.com.
func NewGitHubClient(token, baseURL string) (Client, error) {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
		}
	}

	return &githubClient{
		client:      client,
		rateLimiter: NewRateLimiter(),
		orgIDs:      make(map[string]int64),
	}, nil
}

// ListOrgRepos retrieves all repositories of an organization
func (c *githubClient) ListOrgRepos(ctx context.Context, org string) ([]*domain.Repository, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var allRepos []*domain.Repository
	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		repos, resp, err := c.client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories for %s: %w", org, err)
		}

		c.updateRateLimitFromResponse(resp)

		for _, repo := range repos {
			url := repo.GetSSHURL()
			if url == "" {
				url = repo.GetCloneURL()
			}
			allRepos = append(allRepos, &domain.Repository{
				Org:       org,
				Name:      repo.GetName(),
				URL:       url,
				IsPrivate: repo.GetPrivate(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return allRepos, nil
}

// ListOrgTeams retrieves all teams of an organization
func (c *githubClient) ListOrgTeams(ctx context.Context, org string) ([]*domain.Team, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var allTeams []*domain.Team
	opts := &github.ListOptions{PerPage: 100}

	for {
		teams, resp, err := c.client.Teams.ListTeams(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list teams for %s: %w", org, err)
		}

		c.updateRateLimitFromResponse(resp)

		for _, team := range teams {
			allTeams = append(allTeams, &domain.Team{
				Name: team.GetName(),
				ID:   team.GetID(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return allTeams, nil
}

// ListTeamRepos retrieves the names of the repositories a team owns
func (c *githubClient) ListTeamRepos(ctx context.Context, org string, teamID int64) ([]string, error) {
	orgID, err := c.orgID(ctx, org)
	if err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var names []string
	opts := &github.ListOptions{PerPage: 100}

	for {
		repos, resp, err := c.client.Teams.ListTeamReposByID(ctx, orgID, teamID, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories for team %d: %w", teamID, err)
		}

		c.updateRateLimitFromResponse(resp)

		for _, repo := range repos {
			names = append(names, repo.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return names, nil
}

// ListTeamMembers retrieves the logins of a team's members
func (c *githubClient) ListTeamMembers(ctx context.Context, org string, teamID int64) ([]string, error) {
	orgID, err := c.orgID(ctx, org)
	if err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var logins []string
	opts := &github.TeamListTeamMembersOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		members, resp, err := c.client.Teams.ListTeamMembersByID(ctx, orgID, teamID, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list members for team %d: %w", teamID, err)
		}

		c.updateRateLimitFromResponse(resp)

		for _, member := range members {
			logins = append(logins, member.GetLogin())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return logins, nil
}

// CurrentUserLogin retrieves the authenticated user's login
func (c *githubClient) CurrentUserLogin(ctx context.Context) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to get authenticated user: %w", err)
	}
	c.updateRateLimitFromResponse(resp)

	return user.GetLogin(), nil
}

// orgID resolves the numeric organization ID, one lookup per org per process
func (c *githubClient) orgID(ctx context.Context, org string) (int64, error) {
	if id, ok := c.orgIDs[org]; ok {
		return id, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, err
	}

	o, resp, err := c.client.Organizations.Get(ctx, org)
	if err != nil {
		return 0, fmt.Errorf("failed to get organization %s: %w", org, err)
	}
	c.updateRateLimitFromResponse(resp)

	c.orgIDs[org] = o.GetID()
	return o.GetID(), nil
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (c *githubClient) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Remaining >= 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}
