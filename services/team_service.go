// services/team_service.go - Team registration and membership
package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"puzzlearena/models"

	"gorm.io/gorm"
)

// TeamService is the thin team-management edge the competition core sits on.
// Identity itself (passwords, tokens) lives in the auth handlers.
type TeamService struct {
	db *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{db: db}
}

// CreateTeam creates a team with the creator as captain.
func (s *TeamService) CreateTeam(name string, creatorID uint) (*models.Team, error) {
	if name == "" {
		return nil, errors.New("team name is required")
	}

	team := &models.Team{
		Name:      name,
		TeamCode:  s.generateUniqueTeamCode(),
		CreatorID: creatorID,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		member := &models.TeamMember{
			TeamID:   team.ID,
			UserID:   creatorID,
			Role:     models.TeamRoleCaptain,
			JoinedAt: time.Now(),
			IsActive: true,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// GetTeamByID retrieves a team with members preloaded.
func (s *TeamService) GetTeamByID(teamID uint) (*models.Team, error) {
	var team models.Team
	err := s.db.Where("id = ? AND is_active = ?", teamID, true).
		Preload("Members").
		Preload("Members.User").
		First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

// GetTeamByCode retrieves a team by its join code.
func (s *TeamService) GetTeamByCode(code string) (*models.Team, error) {
	var team models.Team
	err := s.db.Where("team_code = ? AND is_active = ?", code, true).
		Preload("Members").
		First(&team).Error
	if err != nil {
		return nil, ErrNotFound
	}
	return &team, nil
}

// JoinTeam adds a user to a team via its join code.
func (s *TeamService) JoinTeam(userID uint, teamCode string) (*models.Team, error) {
	team, err := s.GetTeamByCode(teamCode)
	if err != nil {
		return nil, err
	}
	if s.IsTeamMember(userID, team.ID) {
		return nil, errors.New("already a member of this team")
	}

	member := &models.TeamMember{
		TeamID:   team.ID,
		UserID:   userID,
		Role:     models.TeamRoleMember,
		JoinedAt: time.Now(),
		IsActive: true,
	}
	if err := s.db.Create(member).Error; err != nil {
		return nil, err
	}
	return team, nil
}

// TeamForUser returns the active team a user plays for.
func (s *TeamService) TeamForUser(userID uint) (*models.Team, error) {
	var member models.TeamMember
	err := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetTeamByID(member.TeamID)
}

// GetTeamMembers returns the active members of a team.
func (s *TeamService) GetTeamMembers(teamID uint) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := s.db.Where("team_id = ? AND is_active = ?", teamID, true).
		Preload("User").
		Order("role ASC, joined_at ASC").
		Find(&members).Error
	return members, err
}

// IsTeamMember checks if a user is an active member of a team.
func (s *TeamService) IsTeamMember(userID, teamID uint) bool {
	var count int64
	s.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ? AND is_active = ?", teamID, userID, true).
		Count(&count)
	return count > 0
}

// generateUniqueTeamCode generates a unique 6-character alphanumeric code
func (s *TeamService) generateUniqueTeamCode() string {
	for {
		bytes := make([]byte, 3)
		rand.Read(bytes)
		code := hex.EncodeToString(bytes)[:6]

		var count int64
		s.db.Model(&models.Team{}).Where("team_code = ?", code).Count(&count)
		if count == 0 {
			return code
		}
	}
}
