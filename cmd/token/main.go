// Command token mints API bearer tokens for the operator and generates
// secrets suitable for SECRET_KEY.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

func main() {
	var (
		subject   = flag.String("subject", "operator", "subject recorded in the token")
		ttl       = flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
		genSecret = flag.Bool("gen-secret", false, "print a new SECRET_KEY and exit")
	)
	flag.Parse()

	if *genSecret {
		secret, err := utils.GenerateSecretKey()
		if err != nil {
			log.Fatalf("Failed to generate secret: %v", err)
		}
		fmt.Println(secret)
		return
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}
	cfg := config.LoadConfig()
	if cfg.SecretKey == "" {
		log.Fatal("SECRET_KEY is not set")
	}

	token, err := utils.GenerateToken(cfg.SecretKey, *subject, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
