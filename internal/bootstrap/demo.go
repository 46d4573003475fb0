package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/course"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/identity"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

// DemoUser es una cuenta de prueba.
type DemoUser struct {
	Username string
	Email    string
	Password string
	Role     types.Role
}

type demoCourse struct {
	name, code, description string
	faculty                 string // username
	seats                   int
}

// DemoUsers son las cuentas que crea SeedDemo.
var DemoUsers = []DemoUser{
	{"dr_smith", "smith@university.edu", "Faculty@123", types.RoleFaculty},
	{"dr_johnson", "johnson@university.edu", "Faculty@123", types.RoleFaculty},
	{"john_doe", "john.doe@student.edu", "Student@123", types.RoleStudent},
	{"jane_smith", "jane.smith@student.edu", "Student@123", types.RoleStudent},
}

var demoCourses = []demoCourse{
	{"Introduction to Computer Science", "CS101", "Fundamental concepts of programming and computer science", "dr_smith", 30},
	{"Data Structures and Algorithms", "CS201", "Advanced data structures and algorithmic problem solving", "dr_smith", 25},
	{"Database Management Systems", "CS301", "Design and implementation of database systems", "dr_johnson", 30},
	{"Web Development", "CS401", "Modern web application development", "dr_johnson", 35},
	{"Cybersecurity Fundamentals", "CS501", "Introduction to cybersecurity principles and practices", "dr_smith", 20},
}

// DemoConfig agrupa lo que usa SeedDemo.
type DemoConfig struct {
	Identity identity.Service
	Courses  course.Service
	Repos    repository.Repositories
	ActorID  string // admin al que se atribuyen los COURSE_CREATE
}

// DemoResult cuenta lo creado.
type DemoResult struct {
	Users   int
	Courses int
}

// SeedDemo crea usuarios y cursos de prueba. Es idempotente: lo que ya
// existe se saltea.
func SeedDemo(ctx context.Context, cfg DemoConfig) (*DemoResult, error) {
	log := logger.From(ctx).With(logger.Component("bootstrap"), logger.Op("SeedDemo"))
	res := &DemoResult{}
	ids := map[string]string{}

	for _, du := range DemoUsers {
		u, err := cfg.Identity.CreateUser(ctx, identity.NewUser{
			Username: du.Username,
			Email:    du.Email,
			Password: du.Password,
			Role:     du.Role,
		})
		switch {
		case err == nil:
			res.Users++
			ids[du.Username] = u.ID
		case errors.Is(err, identity.ErrDuplicate):
			existing, gerr := cfg.Repos.Users().GetByEmail(ctx, du.Email)
			if gerr != nil {
				return nil, fmt.Errorf("bootstrap: demo user %s: %w", du.Username, gerr)
			}
			ids[du.Username] = existing.ID
		default:
			return nil, fmt.Errorf("bootstrap: demo user %s: %w", du.Username, err)
		}
	}

	for _, dc := range demoCourses {
		name, code, desc, seats := dc.name, dc.code, dc.description, dc.seats
		faculty := ids[dc.faculty]
		_, err := cfg.Courses.Create(ctx, course.Input{
			Name:        &name,
			Code:        &code,
			Description: &desc,
			FacultyID:   &faculty,
			MaxSeats:    &seats,
		}, cfg.ActorID, audit.Meta{})
		switch {
		case err == nil:
			res.Courses++
		case errors.Is(err, course.ErrDuplicateCode):
		default:
			return nil, fmt.Errorf("bootstrap: demo course %s: %w", code, err)
		}
	}

	log.Info("demo data seeded", logger.Int("users", res.Users), logger.Int("courses", res.Courses))
	return res, nil
}
