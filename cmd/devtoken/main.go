// cmd/devtoken/main.go
package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/pkg/auth"
	"github.com/your-org/stationery-backend/internal/pkg/logger"
)

// devtoken prints a bearer token signed with the local JWT secret so the API
// can be exercised without the identity service. It refuses to run in production.
func main() {
	userID := flag.Uint("user", 1, "staff user id")
	email := flag.String("email", "dev@example.com", "staff email")
	admin := flag.Bool("admin", false, "grant the admin claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg)

	if cfg.IsProduction() {
		log.Fatal("devtoken is disabled when APP_ENV=production")
	}

	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(*userID, *email, *admin)
	if err != nil {
		log.WithError(err).Fatal("Failed to sign token")
	}

	log.WithFields(logrus.Fields{
		"user_id": *userID,
		"admin":   *admin,
		"expires": cfg.JWT.AccessTokenExpiry.String(),
	}).Info("Token issued")
	fmt.Println(token)
}
