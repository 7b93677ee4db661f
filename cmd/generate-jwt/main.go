// Утилита для генерации dev JWT токенов:
//
//	go run ./cmd/generate-jwt -user rider-1 -role RIDER
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/Franelll/MaaS-sub000/internal/shared/auth"
	"github.com/Franelll/MaaS-sub000/internal/shared/config"

	"github.com/google/uuid"
)

func main() {
	user := flag.String("user", "", "user id (default: random uuid)")
	role := flag.String("role", "RIDER", "RIDER|OPERATOR|ADMIN")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("failed to load config:", err)
	}

	userID := *user
	if userID == "" {
		userID = uuid.NewString()
	}

	token, err := auth.NewJWTService(cfg.JWT).GenerateToken(userID, *role)
	if err != nil {
		log.Fatalln("failed to generate token:", err)
	}

	fmt.Printf("user_id: %s\nrole:    %s\ntoken:   %s\n", userID, *role, token)
}
