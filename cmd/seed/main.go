package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/feedstream/config"
	"github.com/oksasatya/feedstream/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "demo@feedstream.local"
	password := "demo12345"
	name := "Demo User"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var userID string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, name, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET name=EXCLUDED.name
		RETURNING id
	`, email, hash, name, "Seeded and ready").Scan(&userID)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", userID, email, password)

	posts := []struct {
		title, content, image string
	}{
		{"Hello", "World", "https://storage.googleapis.com/feedstream/images/hello.png"},
		{"Second post", "More content", "https://storage.googleapis.com/feedstream/images/second.png"},
	}
	for _, p := range posts {
		var postID string
		err = db.QueryRow(`
			INSERT INTO posts (title, content, image_url, creator_id)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, p.title, p.content, p.image, userID).Scan(&postID)
		if err != nil {
			log.Fatalf("failed to seed post: %v", err)
		}
		if _, err := db.Exec(`
			INSERT INTO user_posts (user_id, post_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, post_id) DO NOTHING
		`, userID, postID); err != nil {
			log.Fatalf("failed to seed owner ref: %v", err)
		}
		fmt.Printf("seeded post: id=%s title=%q\n", postID, p.title)
	}
}
