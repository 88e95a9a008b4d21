package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wardenhq/warden/internal/token"
)

func main() {
	var reviewerID string
	var secret string
	flag.StringVar(&reviewerID, "reviewer", "", "reviewer ID to embed in the token")
	flag.StringVar(&secret, "secret", "", "signing secret (defaults to REVIEWER_TOKEN_SECRET)")
	flag.Parse()

	if reviewerID == "" {
		fmt.Fprintln(os.Stderr, "reviewer required")
		os.Exit(1)
	}
	if secret == "" {
		secret = os.Getenv("REVIEWER_TOKEN_SECRET")
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "secret required (flag or REVIEWER_TOKEN_SECRET)")
		os.Exit(1)
	}

	tok, err := token.Generate(reviewerID, []byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
