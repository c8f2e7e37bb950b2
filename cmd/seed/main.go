// Command main runs the database seeder for PetBuddies.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"petbuddies/internal/config"
	"petbuddies/internal/database"
	"petbuddies/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean marketplace data before seeding")
	dictsOnly := flag.Bool("dicts-only", false, "Only load report types and postal codes")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible data")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *dictsOnly {
		if err := seed.Dictionaries(db); err != nil {
			log.Fatalf("❌ Dictionary seeding failed: %v", err)
		}
		log.Println("✨ Dictionaries loaded.")
		return
	}

	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)
	sum, err := seed.NewSeeder(db).Run(context.Background(), seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		Seed:        *randSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Created %d users, %d pets, %d posts, %d applications, %d ratings.",
		sum.Users, sum.Pets, sum.Posts, sum.Applications, sum.Ratings)
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
