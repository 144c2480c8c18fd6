// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"
	"unicode/utf8"

	"chirp/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls seeding volume and behavior.
type Options struct {
	NumUsers    int
	NumMessages int
	ShouldClean bool
	// SkipBcrypt stores the demo password in plaintext; hashing dominates
	// seeding time at larger volumes.
	SkipBcrypt bool
	// MaxDays spreads message timestamps over this many days back.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand

	// demo password hash is computed once and shared
	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())

	f := &Factory{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if opts.SkipBcrypt {
		f.passwordHash = "password123"
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		f.passwordHash = string(hashed)
	}
	return f
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:       gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:          gofakeit.Email(),
		Password:       f.passwordHash,
		Bio:            gofakeit.Sentence(10),
		Location:       fmt.Sprintf("%s, %s", gofakeit.City(), gofakeit.StateAbr()),
		ImageURL:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		HeaderImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/1200/300", gofakeit.UUID()),
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildMessage constructs a message for the user without persisting it.
// Useful for batching.
func (f *Factory) BuildMessage(user *models.User, overrides ...func(*models.Message)) *models.Message {
	text := gofakeit.Sentence(f.rng.Intn(15) + 3)
	for utf8.RuneCountInString(text) > models.MaxMessageLength {
		text = gofakeit.Sentence(5)
	}

	message := &models.Message{
		Text:   text,
		UserID: user.ID,
	}

	// realistic timestamp spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	message.Timestamp = time.Now().Add(
		-time.Duration(daysBack)*24*time.Hour -
			time.Duration(hoursBack)*time.Hour -
			time.Duration(minsBack)*time.Minute)

	for _, override := range overrides {
		override(message)
	}
	return message
}

// CreateMessagesBatch persists multiple messages in a single DB call.
func (f *Factory) CreateMessagesBatch(messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := f.db.Create(&messages).Error; err != nil {
		return err
	}
	log.Printf("CreateMessagesBatch: %d messages", len(messages))
	return nil
}
