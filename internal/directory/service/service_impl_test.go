package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/authcontext"
	"github.com/estatelane/estatelane/internal/clock"
	"github.com/estatelane/estatelane/internal/directory/domain"
	"github.com/estatelane/estatelane/internal/directory/repository"
	"github.com/estatelane/estatelane/pkg/db/pagination"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc  *Service
	db   *gorm.DB
	node *snowflake.Node
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := &Service{
		db:    db,
		log:   zap.NewNop(),
		repo:  repository.Provide(),
		genID: node,
		clock: clock.NewFakeClock(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)),
	}
	return &fixture{svc: svc, db: db, node: node}
}

func (f *fixture) seedUser(t *testing.T, role domain.Role, parentID *snowflake.ID) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	record := &domain.User{
		ID:       id,
		Role:     role,
		ParentID: parentID,
		Name:     fmt.Sprintf("user-%s", id),
		Email:    fmt.Sprintf("user-%s@example.com", id),
	}
	require.NoError(t, f.db.Create(record).Error)
	return id
}

func as(userID snowflake.ID) context.Context {
	return authcontext.WithUserID(context.Background(), int64(userID))
}

func TestGetUser(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)

	user, err := f.svc.GetUser(context.Background(), admin.String())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.Nil(t, user.ParentID)

	_, err = f.svc.GetUser(context.Background(), f.node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetUser(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.GetUser(context.Background(), "0")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestCreateAgency(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)

	resp, err := f.svc.CreateAgency(as(admin), domain.CreateAgencyRequest{
		Name:  "Lakeside Realty",
		Email: "Office@Lakeside.Example",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgency, resp.Role)
	require.NotNil(t, resp.ParentID)
	assert.Equal(t, admin.String(), *resp.ParentID)
	assert.Equal(t, "office@lakeside.example", resp.Email)
	// Timestamps come from the injected clock, not the wall clock.
	assert.Equal(t, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), resp.CreatedAt)
}

func TestCreateAgency_AdminOnly(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)
	agency := f.seedUser(t, domain.RoleAgency, &admin)

	_, err := f.svc.CreateAgency(as(agency), domain.CreateAgencyRequest{
		Name:  "Rogue Realty",
		Email: "rogue@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrNotPermitted)
}

func TestCreateAgency_DuplicateEmail(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)

	_, err := f.svc.CreateAgency(as(admin), domain.CreateAgencyRequest{Name: "First", Email: "same@example.com"})
	require.NoError(t, err)

	_, err = f.svc.CreateAgency(as(admin), domain.CreateAgencyRequest{Name: "Second", Email: "same@example.com"})
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestCreateAgency_Validation(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)

	_, err := f.svc.CreateAgency(as(admin), domain.CreateAgencyRequest{Name: "  ", Email: "a@b.c"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.CreateAgency(as(admin), domain.CreateAgencyRequest{Name: "Ok", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = f.svc.CreateAgency(context.Background(), domain.CreateAgencyRequest{Name: "Ok", Email: "a@b.c"})
	assert.ErrorIs(t, err, domain.ErrMissingContext)
}

func TestCreateAgent_AgencyCreatesUnderItself(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)
	agency := f.seedUser(t, domain.RoleAgency, &admin)

	resp, err := f.svc.CreateAgent(as(agency), domain.CreateAgentRequest{
		Name:  "Sam Agent",
		Email: "sam@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, resp.Role)
	require.NotNil(t, resp.ParentID)
	assert.Equal(t, agency.String(), *resp.ParentID)
}

func TestCreateAgent_AgencyCannotPickAnotherParent(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)
	agency := f.seedUser(t, domain.RoleAgency, &admin)
	other := f.seedUser(t, domain.RoleAgency, &admin)

	_, err := f.svc.CreateAgent(as(agency), domain.CreateAgentRequest{
		Name:     "Sam Agent",
		Email:    "sam@example.com",
		ParentID: other.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidParent)
}

func TestCreateAgent_AdminUnderOwnAgency(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)
	agency := f.seedUser(t, domain.RoleAgency, &admin)

	resp, err := f.svc.CreateAgent(as(admin), domain.CreateAgentRequest{
		Name:     "Sam Agent",
		Email:    "sam@example.com",
		ParentID: agency.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ParentID)
	assert.Equal(t, agency.String(), *resp.ParentID)
}

func TestCreateAgent_AdminDefaultsToSelf(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)

	resp, err := f.svc.CreateAgent(as(admin), domain.CreateAgentRequest{
		Name:  "Direct Agent",
		Email: "direct@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ParentID)
	assert.Equal(t, admin.String(), *resp.ParentID)
}

func TestCreateAgent_AdminCannotUseForeignAgency(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)
	otherAdmin := f.seedUser(t, domain.RoleAdmin, nil)
	foreignAgency := f.seedUser(t, domain.RoleAgency, &otherAdmin)

	_, err := f.svc.CreateAgent(as(admin), domain.CreateAgentRequest{
		Name:     "Sam Agent",
		Email:    "sam@example.com",
		ParentID: foreignAgency.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidParent)
}

func TestCreateAgent_AgentCannotCreate(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)
	agency := f.seedUser(t, domain.RoleAgency, &admin)
	agent := f.seedUser(t, domain.RoleAgent, &agency)

	_, err := f.svc.CreateAgent(as(agent), domain.CreateAgentRequest{
		Name:  "Nope",
		Email: "nope@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrNotPermitted)
}

func TestListUsers_Pagination(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)
	for i := 0; i < 5; i++ {
		f.seedUser(t, domain.RoleAgency, &admin)
	}

	first, err := f.svc.ListUsers(context.Background(), domain.ListUsersRequest{
		Pagination: pagination.Pagination{PageSize: 3},
		Role:       domain.RoleAgency,
	})
	require.NoError(t, err)
	require.Len(t, first.Users, 3)
	require.True(t, first.PageInfo.HasMore)
	require.NotEmpty(t, first.PageInfo.NextPageToken)

	second, err := f.svc.ListUsers(context.Background(), domain.ListUsersRequest{
		Pagination: pagination.Pagination{PageSize: 3, PageToken: first.NextPageToken},
		Role:       domain.RoleAgency,
	})
	require.NoError(t, err)
	assert.Len(t, second.Users, 2)
	assert.False(t, second.PageInfo.HasMore)

	seen := map[string]bool{}
	for _, u := range append(first.Users, second.Users...) {
		assert.False(t, seen[u.ID], "duplicate id %s across pages", u.ID)
		seen[u.ID] = true
	}
}

func TestListUsers_BadToken(t *testing.T) {
	f := setup(t)

	_, err := f.svc.ListUsers(context.Background(), domain.ListUsersRequest{
		Pagination: pagination.Pagination{PageToken: "!!not-base64!!"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListUsersByRole(t *testing.T) {
	f := setup(t)
	admin := f.seedUser(t, domain.RoleAdmin, nil)
	f.seedUser(t, domain.RoleAgency, &admin)
	f.seedUser(t, domain.RoleAgency, &admin)

	agencies, err := f.svc.ListUsersByRole(context.Background(), domain.RoleAgency)
	require.NoError(t, err)
	assert.Len(t, agencies, 2)

	_, err = f.svc.ListUsersByRole(context.Background(), domain.Role("landlord"))
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}
