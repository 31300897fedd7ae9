package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/config"
	"eventbooking/internal/database"
	"eventbooking/internal/logger"
	"eventbooking/internal/middleware"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
)

var (
	userCount  = flag.Int("users", 10, "Number of regular users to create")
	eventCount = flag.Int("events", 20, "Number of events to create")
	password   = flag.String("password", "password", "Password for every generated user")
	dryRun     = flag.Bool("dry-run", false, "Show what would be generated without making changes")
	seed       = flag.Int64("seed", 0, "Random seed (0 = time based)")
)

var (
	eventNames = []string{"Jazz Night", "Go Meetup", "Startup Pitch", "Chamber Orchestra", "Stand-up Evening", "Film Premiere", "Data Summit", "Theatre Matinee"}
	venues     = []string{"Main Hall", "Arena", "Small Stage", "Conference Room B", "Open Air"}
	locations  = []string{"Almaty", "Astana", "Berlin", "Lisbon", "Online"}
)

func main() {
	flag.Parse()
	logger.Init("info", "text")

	slog.Info("Starting data generator...")

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	g := &Generator{
		repos:    repository.NewRepositories(db),
		rand:     rand.New(rand.NewSource(*seed)),
		password: *password,
		dryRun:   *dryRun,
		now:      time.Now().UTC(),
	}

	if err := g.Generate(ctx, *userCount, *eventCount); err != nil {
		logger.Fatal("Failed to generate data", "error", err)
	}

	slog.Info("Data generation completed successfully!")
}

// Generator seeds users and events through the repositories
type Generator struct {
	repos    *repository.Repositories
	rand     *rand.Rand
	password string
	dryRun   bool
	now      time.Time
}

func (g *Generator) Generate(ctx context.Context, users, events int) error {
	admin, err := g.createUser(ctx, "admin@example.com", "Administrator", models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	creators := []*models.User{admin}
	for i := 1; i <= users; i++ {
		u, err := g.createUser(ctx, fmt.Sprintf("user%d@example.com", i), fmt.Sprintf("User %d", i), models.RoleUser)
		if err != nil {
			return fmt.Errorf("failed to create user %d: %w", i, err)
		}
		creators = append(creators, u)
	}

	for i := 0; i < events; i++ {
		creator := creators[g.rand.Intn(len(creators))]
		event := g.newEvent(creator.ID)

		if g.dryRun {
			slog.Info("[DRY RUN] Would create event", "name", event.Name, "total_seats", event.TotalSeats, "start", event.StartTime)
			continue
		}
		if err := g.repos.Events.Create(ctx, event); err != nil {
			return fmt.Errorf("failed to create event %q: %w", event.Name, err)
		}
		slog.Info("Created event", "event_id", event.ID, "name", event.Name, "total_seats", event.TotalSeats)
	}

	return nil
}

// createUser inserts a user unless the email is already taken
func (g *Generator) createUser(ctx context.Context, email, name string, role models.Role) (*models.User, error) {
	existing, err := g.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Info("User already exists, skipping", "email", email)
		return existing, nil
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: middleware.HashPassword(g.password),
		Name:         name,
		Role:         role,
		IsActive:     true,
		RegisteredAt: g.now,
	}
	if g.dryRun {
		slog.Info("[DRY RUN] Would create user", "email", email, "role", role)
		return user, nil
	}
	if err := g.repos.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("Created user", "email", email, "role", role)
	return user, nil
}

func (g *Generator) newEvent(creatorID uuid.UUID) *models.Event {
	start := g.now.Add(time.Duration(g.rand.Intn(60*24)+1) * time.Hour).Truncate(time.Hour)
	duration := time.Duration(g.rand.Intn(4)+1) * time.Hour
	seats := g.rand.Intn(491) + 10
	name := eventNames[g.rand.Intn(len(eventNames))]

	return &models.Event{
		ID:             uuid.New(),
		Name:           name,
		Description:    fmt.Sprintf("%s in %s", name, locations[g.rand.Intn(len(locations))]),
		StartTime:      start,
		EndTime:        start.Add(duration),
		Venue:          venues[g.rand.Intn(len(venues))],
		Location:       locations[g.rand.Intn(len(locations))],
		PriceCents:     g.priceFor(seats),
		TotalSeats:     seats,
		AvailableSeats: seats,
		CreatorID:      creatorID,
		CreatedAt:      g.now,
		UpdatedAt:      g.now,
	}
}

// priceFor makes small venues pricier
func (g *Generator) priceFor(seats int) int64 {
	base := int64(2000)
	switch {
	case seats <= 50:
		return base + int64(g.rand.Intn(3000)+2000)
	case seats <= 200:
		return base + int64(g.rand.Intn(2000)+1000)
	default:
		return base + int64(g.rand.Intn(1000))
	}
}
