// Package main provides admin management utilities for PetBuddies.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"petbuddies/internal/config"
	"petbuddies/internal/database"
	"petbuddies/internal/models"
	"petbuddies/internal/repository"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin/main.go promote <user_id>     - Promote user to admin")
		fmt.Println("  go run ./cmd/admin/main.go demote <user_id>       - Demote user from admin")
		fmt.Println("  go run ./cmd/admin/main.go list-admins            - List all admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin/main.go %s <user_id>\n", command)
			os.Exit(1)
		}
		setAdmin(ctx, users, os.Args[2], command == "promote")

	case "list-admins":
		listAdmins(ctx, users)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setAdmin(ctx context.Context, users repository.UserRepository, rawID string, admin bool) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		fmt.Printf("Invalid user ID %q\n", rawID)
		os.Exit(1)
	}

	user, err := users.GetByID(ctx, uint(id))
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			fmt.Printf("User with ID %d not found\n", id)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if user.IsAdmin == admin {
		fmt.Printf("User %s (ID: %d) already has is_admin=%t\n", user.Login, user.ID, admin)
		return
	}

	if err := users.SetAdmin(ctx, user.ID, admin); err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}

	verb := "demoted"
	if admin {
		verb = "promoted"
	}
	fmt.Printf("✅ Successfully %s %s (ID: %d)\n", verb, user.Login, user.ID)
}

func listAdmins(ctx context.Context, users repository.UserRepository) {
	admins, err := users.ListAdmins(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Login: %s | Email: %s\n", admin.ID, admin.Login, admin.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
