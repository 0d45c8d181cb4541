// Command synchash prints the bcrypt hash to put in SYNC_SECRET_HASH for a
// given identity provider webhook secret.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"ems/internal/domain/auth"
)

func main() {
	secret := ""
	if len(os.Args) > 1 {
		secret = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "usage: synchash <secret> (or pipe it on stdin)")
			os.Exit(2)
		}
		secret = line
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		fmt.Fprintln(os.Stderr, "secret must not be empty")
		os.Exit(2)
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash failed:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
