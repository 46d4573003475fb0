// Package bootstrap deja una instalación nueva lista para usarse: ventanas
// de política, primer admin y, opcionalmente, datos de demo.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/registrar/internal/course"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/identity"
	"github.com/dropDatabas3/registrar/internal/policy"
)

type Deps struct {
	Repos    repository.Repositories
	Identity identity.Service
	Courses  course.Service
	Policy   policy.Service
	Now      func() time.Time
}

type Options struct {
	Policy policy.Defaults
	Admin  AdminConfig // Identity y Repos se completan desde Deps
	Demo   bool
}

type Result struct {
	PoliciesCreated int
	AdminID         string // "" si ya existía
	Demo            *DemoResult
}

// Run es idempotente.
func Run(ctx context.Context, d Deps, opts Options) (*Result, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	res := &Result{}

	n, err := d.Policy.InitDefaults(ctx, now(), opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: policies: %w", err)
	}
	res.PoliciesCreated = n

	ac := opts.Admin
	ac.Identity, ac.Repos = d.Identity, d.Repos
	if res.AdminID, err = EnsureAdmin(ctx, ac); err != nil {
		return nil, err
	}

	if opts.Demo {
		actor := res.AdminID
		if actor == "" {
			admins, err := d.Repos.Users().List(ctx, repository.ListUsersFilter{Role: types.RoleAdmin})
			if err != nil {
				return nil, fmt.Errorf("bootstrap: list admins: %w", err)
			}
			if len(admins) > 0 {
				actor = admins[0].ID
			}
		}
		res.Demo, err = SeedDemo(ctx, DemoConfig{
			Identity: d.Identity,
			Courses:  d.Courses,
			Repos:    d.Repos,
			ActorID:  actor,
		})
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
