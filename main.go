package main

import (
	"github.com/joho/godotenv"
	"github.com/senjoyee/ewa-mcp/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	// .env is optional; secrets can come from the real environment.
	godotenv.Load()
}
