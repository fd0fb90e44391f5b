// Package scope derives the repository set visible to a sync run: either
// every repository of the organization, or only those owned by teams the
// authenticated user belongs to.
package scope

import (
	"context"
	"path/filepath"

	"github.com/kurihiro0119/orgsync/internal/forge"
)

// Resolver computes the visible repository set from raw organization data.
// Derived values are memoized for the lifetime of the process and
// invalidated as a single unit.
type Resolver struct {
	client       forge.Client
	org          string
	devHome      string
	scopeToTeams bool

	// All memoized state lives here. Invalidate replaces the whole
	// struct, so a partially cleared mix of fields is never observable.
	d *derived
}

type derived struct {
	allRepos    map[string]string          // repo name -> clone URL
	teams       map[string]int64           // team name -> team ID
	teamRepos   map[string]map[string]bool // team name -> owned repo names
	teamMembers map[string]map[string]bool // team name -> member logins
	login       string
	myTeams     map[string]bool
	myRepoNames map[string]bool
	repos       map[string]string // final name -> URL mapping
	repoPaths   map[string]string // name -> local path
}

// NewResolver creates a resolver for one organization. When scopeToTeams
// is false, team and membership endpoints are never queried.
func NewResolver(client forge.Client, org, devHome string, scopeToTeams bool) *Resolver {
	return &Resolver{
		client:       client,
		org:          org,
		devHome:      devHome,
		scopeToTeams: scopeToTeams,
	}
}

// Repos returns the resolved repository set as a name -> clone URL map.
// The result is deterministic for a given API snapshot: calling it again
// without Invalidate returns the same mapping without further API calls.
func (r *Resolver) Repos(ctx context.Context) (map[string]string, error) {
	if r.d != nil {
		return r.d.repos, nil
	}

	d, err := r.build(ctx)
	if err != nil {
		return nil, err
	}
	r.d = d
	return r.d.repos, nil
}

// RepoPaths returns the local path for every resolved repository,
// devHome/org/name.
func (r *Resolver) RepoPaths(ctx context.Context) (map[string]string, error) {
	if _, err := r.Repos(ctx); err != nil {
		return nil, err
	}
	return r.d.repoPaths, nil
}

// MyTeams returns the names of the teams the current user belongs to.
// Only meaningful in scoped mode; unscoped it is empty and costs nothing.
func (r *Resolver) MyTeams(ctx context.Context) ([]string, error) {
	if _, err := r.Repos(ctx); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.d.myTeams))
	for name := range r.d.myTeams {
		names = append(names, name)
	}
	return names, nil
}

// Invalidate discards every memoized derived value atomically. The next
// Repos or RepoPaths call re-fetches from the forge.
func (r *Resolver) Invalidate() {
	r.d = nil
}

// build fetches the raw collections and derives the final mappings. It
// either fully succeeds or returns an error with no state retained.
func (r *Resolver) build(ctx context.Context) (*derived, error) {
	d := &derived{
		teamRepos:   make(map[string]map[string]bool),
		teamMembers: make(map[string]map[string]bool),
		myTeams:     make(map[string]bool),
		myRepoNames: make(map[string]bool),
	}

	repoList, err := r.client.ListOrgRepos(ctx, r.org)
	if err != nil {
		return nil, err
	}
	d.allRepos = make(map[string]string, len(repoList))
	for _, repo := range repoList {
		d.allRepos[repo.Name] = repo.URL
	}

	if !r.scopeToTeams {
		d.repos = d.allRepos
	} else {
		if err := r.buildScoped(ctx, d); err != nil {
			return nil, err
		}
	}

	d.repoPaths = make(map[string]string, len(d.repos))
	for name := range d.repos {
		d.repoPaths[name] = filepath.Join(r.devHome, r.org, name)
	}

	return d, nil
}

func (r *Resolver) buildScoped(ctx context.Context, d *derived) error {
	login, err := r.client.CurrentUserLogin(ctx)
	if err != nil {
		return err
	}
	d.login = login

	teamList, err := r.client.ListOrgTeams(ctx, r.org)
	if err != nil {
		return err
	}
	d.teams = make(map[string]int64, len(teamList))
	for _, team := range teamList {
		d.teams[team.Name] = team.ID
	}

	for name, id := range d.teams {
		members, err := r.client.ListTeamMembers(ctx, r.org, id)
		if err != nil {
			return err
		}
		set := make(map[string]bool, len(members))
		for _, m := range members {
			set[m] = true
		}
		d.teamMembers[name] = set

		if set[d.login] {
			d.myTeams[name] = true
		}
	}

	// Repo lists are only fetched for the user's own teams; the others
	// would never contribute to the union.
	for name := range d.myTeams {
		repos, err := r.client.ListTeamRepos(ctx, r.org, d.teams[name])
		if err != nil {
			return err
		}
		set := make(map[string]bool, len(repos))
		for _, repo := range repos {
			set[repo] = true
			d.myRepoNames[repo] = true
		}
		d.teamRepos[name] = set
	}

	// A team may reference a repository that no longer exists in the org
	// snapshot; such names are dropped, not errored.
	d.repos = make(map[string]string, len(d.myRepoNames))
	for name := range d.myRepoNames {
		if url, ok := d.allRepos[name]; ok {
			d.repos[name] = url
		}
	}

	return nil
}
