// Seed or import the course document store from the command line.
//
// Seeding is an explicit step: the server never invents courses on its
// own. Run this once on first deployment, or pass a JSON export to
// replace the whole catalog.
//
// Usage:
//
//	go run scripts/seed_courses.go            # create the example course if empty
//	go run scripts/seed_courses.go export.json # import a course export
package main

import (
	"encoding/json"
	"log"
	"os"

	"lingua_lms_backend/internal/config"
	"lingua_lms_backend/internal/coursestore"
	"lingua_lms_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("cannot read config file: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("cannot parse config file: %v", err)
	}
	if cfg.CourseDoc.Dir == "" {
		cfg.CourseDoc.Dir = "./data/coursedoc"
	}

	logger.InitLogger(&cfg)

	backend, err := coursestore.NewFileBackend(cfg.CourseDoc.Dir)
	if err != nil {
		log.Fatalf("cannot open course store: %v", err)
	}
	store := coursestore.NewStore(backend, logger.Log)
	if err := store.Reload(); err != nil {
		log.Fatalf("cannot load course document: %v", err)
	}

	if len(os.Args) < 2 {
		if err := store.InitializeWithSeed(); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
		log.Println("seeded example course")
		return
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("cannot read export file: %v", err)
	}
	var courses []coursestore.Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		log.Fatalf("cannot parse export file: %v", err)
	}

	if err := store.ImportCourses(courses, store.Version()); err != nil {
		log.Fatalf("import failed: %v", err)
	}
	log.Printf("imported %d courses (document version %d)", len(courses), store.Version())
}
