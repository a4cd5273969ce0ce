package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"booklibrary/internal/book"
	"booklibrary/internal/config"
	"booklibrary/internal/platform/logger"
	"booklibrary/internal/store"
)

var catalog = []book.Fields{
	{Title: "One Hundred Years of Solitude", Author: "Gabriel García Márquez", ISBN: "9780060883287", Genre: "Magical realism", Rating: 5, ReadingState: "read"},
	{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", ISBN: "9780441478125", Genre: "Science fiction", Rating: 5, ReadingState: "read"},
	{Title: "Things Fall Apart", Author: "Chinua Achebe", ISBN: "9780385474542", Genre: "Literary fiction", Rating: 4, ReadingState: "reading"},
	{Title: "The Name of the Rose", Author: "Umberto Eco", ISBN: "9780156001311", Genre: "Mystery", Rating: 4, ReadingState: "read"},
	{Title: "Pedro Páramo", Author: "Juan Rulfo", ISBN: "9780802133908", Genre: "Literary fiction", ReadingState: "to-read"},
	{Title: "The Master and Margarita", Author: "Mikhail Bulgakov", ISBN: "9780141180144", Genre: "Satire", Rating: 5, ReadingState: "read"},
	{Title: "Invisible Cities", Author: "Italo Calvino", ISBN: "9780156453806", Genre: "Fiction", Rating: 3, ReadingState: "reading"},
	{Title: "The Remains of the Day", Author: "Kazuo Ishiguro", ISBN: "9780679731726", Genre: "Literary fiction", ReadingState: "to-read"},
}

var (
	genres = []string{"Fiction", "Science fiction", "History", "Mystery", "Biography", "Philosophy", "Poetry"}
	words  = []string{"Shadow", "River", "Winter", "Glass", "Orchard", "Lantern", "Harbor", "Ember", "Atlas", "Meridian"}
	states = []book.ReadingState{book.StateRead, book.StateReading, book.StateToRead}
)

func main() {
	random := flag.Int("random", 0, "Number of generated books to add after the curated catalog")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := seed(context.Background(), cfg.Store, *random, log); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg config.StoreConfig, random int, log *slog.Logger) error {
	s, err := store.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	books := make([]book.Fields, 0, len(catalog)+random)
	books = append(books, catalog...)
	for i := 0; i < random; i++ {
		books = append(books, generated(i))
	}

	for _, f := range books {
		b, err := book.New(f)
		if err != nil {
			return fmt.Errorf("seed %q: %w", f.Title, err)
		}
		if _, err := s.Repo.Save(ctx, b); err != nil {
			return fmt.Errorf("seed %q: %w", f.Title, err)
		}
	}
	log.Info("seed complete", "books", len(books))
	return nil
}

func generated(i int) book.Fields {
	return book.Fields{
		Title:        fmt.Sprintf("The %s of %s %d", words[rand.IntN(len(words))], words[rand.IntN(len(words))], i+1),
		Author:       fmt.Sprintf("Author %d", rand.IntN(500)+1),
		ISBN:         fmt.Sprintf("978%010d", rand.IntN(1_000_000_000)),
		Genre:        genres[rand.IntN(len(genres))],
		Rating:       rand.IntN(book.MaxRating + 1),
		ReadingState: string(states[rand.IntN(len(states))]),
	}
}
