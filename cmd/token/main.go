// Command token prints a signed bearer token for the cabin prediction API.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/config"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/services"

	"github.com/sirupsen/logrus"
)

func main() {
	subject := flag.String("subject", "", "token subject, e.g. the client name")
	role := flag.String("role", "writer", "token role; POST /data/ requires writer")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: token -subject NAME [-role writer]")
		os.Exit(2)
	}
	if !cfg.JWT.Enabled() {
		logrus.Fatal("JWT_SECRET is not set")
	}

	token, err := services.NewAuthService(cfg.JWT).GenerateToken(*subject, *role)
	if err != nil {
		logrus.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}
