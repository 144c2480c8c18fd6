package seed

import (
	"fmt"
	"log"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// Seed populates the database with test data: users, messages, a follow
// graph, and likes.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Starting database seeding with %d users and %d messages...",
		opts.NumUsers, opts.NumMessages)

	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	factory := NewFactory(db, opts)

	users, err := createUsers(factory, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("%d test users created", len(users))

	messages, err := createMessages(factory, users, opts.NumMessages)
	if err != nil {
		return fmt.Errorf("failed to create messages: %w", err)
	}
	log.Printf("%d messages created", len(messages))

	if err := createFollows(factory, users); err != nil {
		return fmt.Errorf("failed to create follows: %w", err)
	}

	if err := createLikes(factory, users, messages); err != nil {
		return fmt.Errorf("failed to create likes: %w", err)
	}

	log.Println("Seeding complete. All test users have the password: password123")
	return nil
}

// ClearAll removes seeded rows in dependency order.
func ClearAll(db *gorm.DB) error {
	for _, model := range []any{
		&models.Like{},
		&models.Follow{},
		&models.Message{},
		&models.User{},
	} {
		if err := db.Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(f *Factory, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func createMessages(f *Factory, users []*models.User, count int) ([]*models.Message, error) {
	if len(users) == 0 {
		return nil, nil
	}
	messages := make([]*models.Message, 0, count)
	for i := 0; i < count; i++ {
		author := users[f.rng.Intn(len(users))]
		messages = append(messages, f.BuildMessage(author))
	}
	if err := f.CreateMessagesBatch(messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// createFollows gives every user a handful of random follows. Duplicates are
// avoided up front so the unique index never trips.
func createFollows(f *Factory, users []*models.User) error {
	var follows []models.Follow
	for _, user := range users {
		seen := map[uint]bool{user.ID: true}
		count := f.rng.Intn(8) + 1
		for j := 0; j < count && len(seen) < len(users); j++ {
			target := users[f.rng.Intn(len(users))]
			if seen[target.ID] {
				continue
			}
			seen[target.ID] = true
			follows = append(follows, models.Follow{
				FollowerID: user.ID,
				FollowedID: target.ID,
			})
		}
	}
	if len(follows) == 0 {
		return nil
	}
	if err := f.db.Create(&follows).Error; err != nil {
		return err
	}
	log.Printf("%d follow edges created", len(follows))
	return nil
}

// createLikes scatters likes across messages, skipping each author's own.
func createLikes(f *Factory, users []*models.User, messages []*models.Message) error {
	var likes []models.Like
	seen := map[[2]uint]bool{}
	for _, user := range users {
		count := f.rng.Intn(6)
		for j := 0; j < count && len(messages) > 0; j++ {
			message := messages[f.rng.Intn(len(messages))]
			if message.UserID == user.ID {
				continue
			}
			key := [2]uint{user.ID, message.ID}
			if seen[key] {
				continue
			}
			seen[key] = true
			likes = append(likes, models.Like{
				UserID:    user.ID,
				MessageID: message.ID,
			})
		}
	}
	if len(likes) == 0 {
		return nil
	}
	if err := f.db.Create(&likes).Error; err != nil {
		return err
	}
	log.Printf("%d likes created", len(likes))
	return nil
}
