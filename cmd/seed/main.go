package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"realtime-editor/internal/config"
	"realtime-editor/internal/database"
	"realtime-editor/internal/store"
)

func main() {
	documentPath := flag.String("document", "mocks/beautiful_mock_data.json", "document tree JSON to import")
	audioPath := flag.String("audio", "mocks/audio.json", "audio catalog JSON to import")
	flag.Parse()

	cfg := config.Load()

	db, err := database.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close(db)

	fmt.Println("✅ Connected to database")

	var doc store.SeedDocument
	if err := loadJSON(*documentPath, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("⚠️ Mock data not found at %s", *documentPath)
			return
		}
		log.Fatalf("❌ Failed to read %s: %v", *documentPath, err)
	}

	var audio []store.SeedAudio
	if err := loadJSON(*audioPath, &audio); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("❌ Failed to read %s: %v", *audioPath, err)
		}
		log.Printf("⚠️ Audio mock data not found at %s", *audioPath)
	}

	seeded, err := store.Seed(context.Background(), db, &doc, audio)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	if !seeded {
		fmt.Println("ℹ️ Data already seeded.")
		return
	}

	shapes := 0
	for _, p := range doc.Pages {
		shapes += len(p.Shapes)
	}
	fmt.Printf("📦 Seeded document %s: %d pages, %d shapes, %d audio items\n",
		doc.ID, len(doc.Pages), shapes, len(audio))
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
