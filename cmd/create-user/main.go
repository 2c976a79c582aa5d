package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/exam-session-engine/internal/config"
	"github.com/stemsi/exam-session-engine/internal/database"
	"github.com/stemsi/exam-session-engine/internal/logger"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/repository"
	"github.com/stemsi/exam-session-engine/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Account creation never touches the login store, so no Redis client.
	authService := service.NewAuthService(cfg, repository.NewUserRepository(pool), nil, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		s, _ := reader.ReadString('\n')
		return strings.TrimSpace(s)
	}

	fmt.Println("=== Create New User ===")

	firstName := prompt("First name: ")
	if firstName == "" {
		fmt.Println("Error: First name is required")
		return
	}
	lastName := prompt("Last name: ")

	email := prompt("Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	password := string(bytePassword)
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	role := model.Role(prompt("Role (manager, employee, instructor, student) [student]: "))
	if role == "" {
		role = model.RoleStudent
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	u := &model.User{
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		PhoneNumber: prompt("Phone number (optional): "),
		Role:        role,
	}

	if err := authService.CreateUser(ctx, u, password); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole):
			fmt.Printf("Error: unknown role %q\n", role)
		case errors.Is(err, service.ErrEmailTaken):
			fmt.Printf("Error: %s is already registered\n", u.Email)
		default:
			log.Fatal().Err(err).Msg("Failed to create user")
		}
		return
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %d\n", u.Role, u.FullName(), u.Email, u.ID)
}
