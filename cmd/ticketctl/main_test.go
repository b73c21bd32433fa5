package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticketing-system/internal/app"
	"github.com/spec-kit/ticketing-system/internal/config"
	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/mail"
	"github.com/spec-kit/ticketing-system/internal/repository/memory"
)

func newContainer(t *testing.T) *app.Container {
	t.Helper()
	cfg := config.Config{
		Auth:  config.AuthConfig{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost},
		Email: config.EmailConfig{Backend: "console"},
	}
	container, err := app.New(context.Background(), cfg, zap.NewNop(),
		app.WithMemoryStore(memory.NewStore()),
		app.WithSender(mail.NewConsoleSender(zap.NewNop())))
	require.NoError(t, err)
	t.Cleanup(container.Close)
	return container
}

func TestCreateSuperuserAndSetRole(t *testing.T) {
	container := newContainer(t)
	ctx := context.Background()
	var out bytes.Buffer

	err := dispatch(ctx, container.Auth, []string{"createsuperuser", "--email", "root@example.com", "--username", "root", "--password", "pw"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "superuser root@example.com created")

	user, err := container.Repos.Users.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsSuperuser)

	out.Reset()
	err = dispatch(ctx, container.Auth, []string{"setrole", "--email", "root@example.com", "--role", "staff"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com is now staff\n", out.String())

	profile, err := container.Repos.Profiles.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, profile.Role)
}

func TestDispatchErrors(t *testing.T) {
	container := newContainer(t)
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, dispatch(ctx, container.Auth, []string{"frobnicate"}, &out))
	assert.Error(t, dispatch(ctx, container.Auth, []string{"setrole", "--email", "x@example.com"}, &out))
	assert.Error(t, dispatch(ctx, container.Auth, []string{"setrole", "--email", "ghost@example.com", "--role", "admin"}, &out))
	assert.Error(t, dispatch(ctx, container.Auth, []string{"createsuperuser", "--email", "root@example.com"}, &out))
}

func TestRunPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(nil, &out))
	assert.Contains(t, out.String(), "createsuperuser")
}
