// handlers/auth.go - Team-member registration and login
package handlers

import (
	"os"
	"time"

	"puzzlearena/database"
	"puzzlearena/models"
	"puzzlearena/services"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool     `json:"success"`
	Token   string   `json:"token,omitempty"`
	User    UserInfo `json:"user,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type UserInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	TeamID   uint   `json:"team_id,omitempty"`
}

// Register creates a user account. Team membership comes later via the team
// join flow; the token is reissued with the team claim on next login.
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Invalid request body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Username and password are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to hash password"})
	}

	db := database.GetDB()
	user := models.User{
		Username: req.Username,
		Password: string(hashed),
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if err := db.Create(&user).Error; err != nil {
		return c.Status(409).JSON(AuthResponse{Success: false, Error: "Username or email already taken"})
	}

	token, err := generateToken(&user, 0)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to generate token"})
	}

	return c.JSON(AuthResponse{
		Success: true,
		Token:   token,
		User:    UserInfo{ID: user.ID, Username: user.Username},
	})
}

// Login authenticates a user and embeds their team in the token.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Invalid request body"})
	}

	db := database.GetDB()
	var user models.User
	if err := db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		return c.Status(401).JSON(AuthResponse{Success: false, Error: "Invalid credentials"})
	}
	if user.IsBanned {
		return c.Status(403).JSON(AuthResponse{Success: false, Error: "Account is banned"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(401).JSON(AuthResponse{Success: false, Error: "Invalid credentials"})
	}

	user.LastLogin = time.Now()
	db.Save(&user)

	teamID := uint(0)
	if team, err := services.NewTeamService(db).TeamForUser(user.ID); err == nil {
		teamID = team.ID
	}

	token, err := generateToken(&user, teamID)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to generate token"})
	}

	return c.JSON(AuthResponse{
		Success: true,
		Token:   token,
		User:    UserInfo{ID: user.ID, Username: user.Username, TeamID: teamID},
	})
}

// generateToken creates a JWT carrying the caller's identity and team.
func generateToken(user *models.User, teamID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"team_id":  teamID,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
