package main

import (
	"fmt"
	"os"
)

var (
	// GitTagSha is set during build via -ldflags.
	GitTagSha = "Git tag sha: Not provided (use ./build instead of go build)"
)

func printVersion() {
	fmt.Println(GitTagSha)
	os.Exit(0)
}

func getVersion() string {
	return GitTagSha
}
