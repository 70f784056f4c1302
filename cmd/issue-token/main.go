package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"genstudio/internal/auth"
	"genstudio/internal/config"
	"genstudio/internal/ledger"
)

func main() {
	subject := flag.String("subject", "", "token subject (user id); a random uuid when empty")
	roleName := flag.String("role", "viewer", "role to grant: admin or viewer")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	grant := flag.Float64("grant", 0, "credits to add to the subject's balance (needs REDIS_ADDRESS)")
	flag.Parse()

	// Load configuration (JWT secret and Redis connection)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	role, err := auth.ParseRole(*roleName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	if *subject == "" {
		*subject = uuid.New().String()
	}

	token, expiresAt, err := auth.GenerateJWT(cfg.JWTSecret, *subject, []auth.Role{role}, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	if *grant > 0 {
		if cfg.Redis.Address == "" {
			fmt.Fprintf(os.Stderr, "ERROR: -grant needs REDIS_ADDRESS\n")
			os.Exit(1)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		l := ledger.NewRedisLedger(rdb, cfg.Jobs.LedgerRefTTL)
		balance, err := l.Credit(ctx, *subject, *grant, "grant:"+uuid.New().String())
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to grant credits: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Granted %g credits, balance is now %g\n", *grant, balance)
	}

	fmt.Fprintf(os.Stderr, "Subject: %s\n", *subject)
	fmt.Fprintf(os.Stderr, "Role:    %s\n", role)
	fmt.Fprintf(os.Stderr, "Expires: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
