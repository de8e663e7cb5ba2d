// Command devtoken prints a bearer token signed with the configured secret,
// for calling the API locally.
package main

import (
	"flag"
	"fmt"
	"log"

	"clipshare/internal/config"
	"clipshare/internal/pkg/jwt"
)

func main() {
	userID := flag.String("user", "dev", "user id claim")
	role := flag.String("role", "editor", "role claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	token, err := jwt.New(cfg.JWT.Secret, cfg.JWT.TTL).GenerateToken(*userID, *role)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}
