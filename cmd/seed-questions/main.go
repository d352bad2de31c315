package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/numerix/numerix-backend/internal/config"
	"github.com/numerix/numerix-backend/internal/database"
	"github.com/numerix/numerix-backend/internal/logger"
	"github.com/numerix/numerix-backend/internal/model"
	"github.com/numerix/numerix-backend/internal/repository"
)

type seedAnswer struct {
	text    string
	correct bool
}

type seedQuestion struct {
	slug     string
	title    string
	category string
	answers  []seedAnswer
}

// Starter question bank for the life-crystal chapter.
var seedQuestions = []seedQuestion{
	{
		slug:     "krysztal-zycia-1-szukanie-siebie",
		title:    "Jaką liczbę widzimy w krysztale życia, która sugeruje nam szukanie siebie, realizację pomysłów",
		category: "Kryształ życia",
		answers:  []seedAnswer{{"5", false}, {"1", true}, {"6", false}, {"2", false}},
	},
	{
		slug:     "krysztal-zycia-2-wspolpraca-wplyw-kobiet",
		title:    "Jaką liczbę widzimy w krysztale życia, która sugeruje nam wpływ innych, współpracę, wpływ kobiet",
		category: "Kryształ życia",
		answers:  []seedAnswer{{"1", false}, {"2", true}, {"4", false}, {"8", false}},
	},
	{
		slug:     "krysztal-zycia-3-dobry-czas-miejsce",
		title:    "Jaką liczbę widzimy w krysztale życia, która sugeruje nam dobry czas, dobre miejsce",
		category: "Kryształ życia",
		answers:  []seedAnswer{{"3", true}, {"7", false}, {"2", false}, {"8", false}},
	},
	{
		slug:     "krysztal-zycia-4-praca",
		title:    "Jaką liczbę widzimy w krysztale życia, która sugeruje nam pracę",
		category: "Kryształ życia",
		answers:  []seedAnswer{{"7", false}, {"4", true}, {"9", false}, {"2", false}},
	},
	{
		slug:     "krysztal-zycia-5-doplyw-energii",
		title:    "Jaką liczbę widzimy w krysztale życia, która sugeruje nam dopływ energii",
		category: "Kryształ życia",
		answers:  []seedAnswer{{"7", false}, {"4", false}, {"5", true}, {"6", false}},
	},
	{
		slug:     "krysztal-zycia-6-rodzina-dawanie",
		title:    "Jaką liczbę widzimy w krysztale życia, która sugeruje nam rodzinę, branie i dawanie",
		category: "Kryształ życia",
		answers:  []seedAnswer{{"7", false}, {"1", false}, {"2", false}, {"6", true}},
	},
	{
		slug:     "krysztal-zycia-7-medytacja-specjalizacja",
		title:    "Jaką liczbę widzimy w krysztale życia, która sugeruje nam czas na medytację, specjalizację",
		category: "Kryształ życia",
		answers:  []seedAnswer{{"3", false}, {"5", false}, {"7", true}, {"8", false}},
	},
	{
		slug:     "krysztal-zycia-8-materialny-energia-meska",
		title:    "Jaką liczbę widzimy w krysztale życia, która sugeruje nam czas materialny, wpływ ojca (męskiej energii)",
		category: "Kryształ życia",
		answers:  []seedAnswer{{"1", false}, {"3", false}, {"8", true}, {"7", false}},
	},
	{
		slug:     "krysztal-zycia-9-sluzba-zakonczenia",
		title:    "Jaką liczbę widzimy w krysztale życia, która sugeruje nam bycie dla innych, zakończenia",
		category: "Kryształ życia",
		answers:  []seedAnswer{{"9", true}, {"3", false}, {"7", false}, {"1", false}},
	},
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Printf("=== Seeding %d Questions ===\n", len(seedQuestions))

	created := 0
	for _, seed := range seedQuestions {
		_, err := questionRepo.GetBySlug(ctx, seed.slug)
		if err == nil {
			fmt.Printf("skip %s (exists)\n", seed.slug)
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Fatal().Err(err).Str("slug", seed.slug).Msg("Lookup failed")
		}

		q := &model.Question{
			Slug:       seed.slug,
			Title:      seed.title,
			Category:   seed.category,
			Difficulty: "medium",
			Active:     true,
			Answers:    make([]model.Answer, len(seed.answers)),
		}
		for i, a := range seed.answers {
			q.Answers[i] = model.Answer{Text: a.text, IsCorrect: a.correct}
		}

		if err := questionRepo.Create(ctx, q); err != nil {
			log.Fatal().Err(err).Str("slug", seed.slug).Msg("Create failed")
		}
		created++
		fmt.Printf("created %s\n", seed.slug)
	}

	fmt.Printf("Seed complete: %d created, %d skipped\n", created, len(seedQuestions)-created)
}
