package services

import (
	"testing"

	"puzzlearena/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	email := username + "@example.com"
	user := models.User{Username: username, Email: &email, Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestCreateTeamMakesCreatorCaptain(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db)
	captain := seedUser(t, db, "ada")

	team, err := svc.CreateTeam("lovelace", captain.ID)
	require.NoError(t, err)
	assert.Len(t, team.TeamCode, 6)

	members, err := svc.GetTeamMembers(team.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, models.TeamRoleCaptain, members[0].Role)
	assert.Equal(t, captain.ID, members[0].UserID)
}

func TestCreateTeamRequiresName(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db)
	_, err := svc.CreateTeam("", 1)
	assert.Error(t, err)
}

func TestJoinTeamByCode(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db)
	captain := seedUser(t, db, "ada")
	joiner := seedUser(t, db, "grace")

	team, err := svc.CreateTeam("lovelace", captain.ID)
	require.NoError(t, err)

	joined, err := svc.JoinTeam(joiner.ID, team.TeamCode)
	require.NoError(t, err)
	assert.Equal(t, team.ID, joined.ID)
	assert.True(t, svc.IsTeamMember(joiner.ID, team.ID))

	// joining twice is refused
	_, err = svc.JoinTeam(joiner.ID, team.TeamCode)
	assert.Error(t, err)

	// bad code
	_, err = svc.JoinTeam(joiner.ID, "zzzzzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTeamForUser(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db)
	captain := seedUser(t, db, "ada")
	outsider := seedUser(t, db, "bob")

	team, err := svc.CreateTeam("lovelace", captain.ID)
	require.NoError(t, err)

	found, err := svc.TeamForUser(captain.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, found.ID)

	_, err = svc.TeamForUser(outsider.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
