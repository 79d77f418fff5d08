// Command token mints an access token for local testing. Member identities
// are owned by an external login service in production.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Ridham19/GYM-flow/internal/auth"
	"github.com/Ridham19/GYM-flow/internal/config"
)

func main() {
	userID := flag.String("user", "member-1", "requester id")
	email := flag.String("email", "", "contact email for notifications")
	name := flag.String("name", "", "display name")
	role := flag.String("role", auth.RoleMember, "member or admin")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.GenerateAccessToken(*userID, *email, *name, *role, cfg.JWTSecret, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
