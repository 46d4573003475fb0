package bootstrap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/identity"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/util"
)

// ErrNoAdminCredentials: no hay admin, no hay credenciales configuradas y
// no se puede preguntar.
var ErrNoAdminCredentials = errors.New("bootstrap: no admin exists and no credentials were provided")

// AdminConfig configura la creación del primer admin.
type AdminConfig struct {
	Identity identity.Service
	Repos    repository.Repositories

	Username string
	Email    string
	Password string

	// Prompt habilita el modo interactivo cuando faltan credenciales y
	// stdin es una terminal.
	Prompt bool
	In     io.Reader // default os.Stdin
	Out    io.Writer // default os.Stdout
}

// HasAdmin reporta si existe al menos un usuario admin.
func HasAdmin(ctx context.Context, repos repository.Repositories) (bool, error) {
	admins, err := repos.Users().List(ctx, repository.ListUsersFilter{Role: types.RoleAdmin})
	if err != nil {
		return false, err
	}
	return len(admins) > 0, nil
}

// EnsureAdmin crea el primer admin si no existe ninguno. Retorna el ID del
// admin creado ("" si ya había uno).
func EnsureAdmin(ctx context.Context, cfg AdminConfig) (string, error) {
	log := logger.From(ctx).With(logger.Component("bootstrap"), logger.Op("EnsureAdmin"))

	has, err := HasAdmin(ctx, cfg.Repos)
	if err != nil {
		return "", fmt.Errorf("bootstrap: check admins: %w", err)
	}
	if has {
		log.Debug("admin present, skipping")
		return "", nil
	}

	if cfg.Password == "" {
		if !cfg.Prompt || !isTerminal() {
			return "", ErrNoAdminCredentials
		}
		if err := promptAdminCredentials(&cfg); err != nil {
			return "", fmt.Errorf("bootstrap: prompt: %w", err)
		}
	}
	if cfg.Username == "" {
		cfg.Username = "admin"
	}

	u, err := cfg.Identity.CreateUser(ctx, identity.NewUser{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     types.RoleAdmin,
	})
	if err != nil {
		return "", fmt.Errorf("bootstrap: create admin: %w", err)
	}
	log.Info("admin created", logger.UserID(u.ID), logger.Email(util.MaskEmail(u.Email)))
	return u.ID, nil
}

func isTerminal() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// promptAdminCredentials completa lo que falte de cfg. La password se lee
// sin eco.
func promptAdminCredentials(cfg *AdminConfig) error {
	in := cfg.In
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "No admin users found. Let's create the first one.")
	if cfg.Username == "" {
		fmt.Fprint(out, "Admin username [admin]: ")
		s, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		cfg.Username = strings.TrimSpace(s)
	}
	if cfg.Email == "" {
		fmt.Fprint(out, "Admin email: ")
		s, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		cfg.Email = strings.TrimSpace(s)
		if cfg.Email == "" {
			return errors.New("email cannot be empty")
		}
	}

	fd := int(os.Stdin.Fd())
	fmt.Fprint(out, "Admin password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	fmt.Fprint(out, "Confirm password: ")
	confirm, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	if string(pw) != string(confirm) {
		return errors.New("passwords do not match")
	}
	cfg.Password = string(pw)
	return nil
}
