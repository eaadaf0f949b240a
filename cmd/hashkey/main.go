package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/brametal/chapas-backend/pkg/config"
	"github.com/brametal/chapas-backend/pkg/logger"
	"github.com/brametal/chapas-backend/pkg/security"
)

// hashkey prints an argon2id hash for CHAPAS_ADMIN_KEY_HASH or
// CHAPAS_SUPERADMIN_KEY_HASH. Without -generate the key is read from stdin.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "hashkey", Output: os.Stderr})
	_ = godotenv.Load()

	generate := flag.Bool("generate", false, "generate a random access key")
	length := flag.Int("length", 24, "length of a generated key")
	flag.Parse()

	// Only the argon section is needed, so the full config is not required.
	var argon config.PasswordConfig
	if err := envconfig.Process(config.EnvPrefix, &argon); err != nil {
		logg.Error(ctx, "failed to read argon settings", err)
		os.Exit(1)
	}

	var key string
	if *generate {
		generated, err := security.GenerateAccessKey(*length)
		if err != nil {
			logg.Error(ctx, "failed to generate key", err)
			os.Exit(1)
		}
		key = generated
		fmt.Println("key: ", key)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			logg.Error(ctx, "failed to read key from stdin", err)
			os.Exit(1)
		}
		key = strings.TrimSpace(line)
	}

	hash, err := security.HashAccessKey(key, argon)
	if err != nil {
		logg.Error(ctx, "failed to hash key", err)
		os.Exit(1)
	}
	fmt.Println("hash:", hash)
}
