package forge

import (
	"context"

	"github.com/kurihiro0119/orgsync/internal/domain"
)

// Client defines the read-only boundary to the code forge. The resolver
// treats result ordering as insignificant and converts to keyed maps.
type Client interface {
	// ListOrgRepos retrieves all repositories of an organization
	ListOrgRepos(ctx context.Context, org string) ([]*domain.Repository, error)

	// ListOrgTeams retrieves all teams of an organization
	ListOrgTeams(ctx context.Context, org string) ([]*domain.Team, error)

	// ListTeamRepos retrieves the names of the repositories a team owns
	ListTeamRepos(ctx context.Context, org string, teamID int64) ([]string, error)

	// ListTeamMembers retrieves the logins of a team's members
	ListTeamMembers(ctx context.Context, org string, teamID int64) ([]string, error)

	// CurrentUserLogin retrieves the authenticated user's login
	CurrentUserLogin(ctx context.Context) (string, error)
}
