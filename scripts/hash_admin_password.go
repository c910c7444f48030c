package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Quick utility to generate the bcrypt hash of an admin password
// Usage: go run scripts/hash_admin_password.go <email> <password>
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run scripts/hash_admin_password.go <email> <password>")
		os.Exit(1)
	}

	email, password := os.Args[1], os.Args[2]

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bcrypt Hash: %s\n", string(hashedPassword))
	fmt.Printf("\nTo create or update the admin in MongoDB, run:\n")
	fmt.Printf("db.admins.updateOne(\n")
	fmt.Printf("  {\"email\": %q},\n", email)
	fmt.Printf("  {$set: {\"passwordHash\": %q, \"active\": true}},\n", string(hashedPassword))
	fmt.Printf("  {upsert: true}\n")
	fmt.Printf(")\n")
}
