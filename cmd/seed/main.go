// Command seed populates the database with the plant catalog and the
// question bank. Safe to run repeatedly; existing rows are left alone.
package main

import (
	"flag"
	"log"

	"github.com/entwine-app/entwine/internal/database"
)

type plantSeed struct {
	id, name, emoji, description string
	durationDays                 int
	baseGrowthRate               float64
	difficulty                   string
}

type categorySeed struct {
	slug, name, description string
}

type questionSeed struct {
	category string
	text     string
	points   int
}

var plants = []plantSeed{
	{"daisy", "Daisy", "🌼", "A cheerful quick bloomer for new pairs.", 6, 0.167, "easy"},
	{"sunflower", "Sunflower", "🌻", "Grows fast and tall with steady care.", 7, 0.14, "easy"},
	{"tulip", "Tulip", "🌷", "A bright spring classic.", 7, 0.14, "easy"},
	{"lily", "Lily", "🌸", "Elegant and forgiving.", 9, 0.11, "easy"},
	{"cherry_blossom", "Cherry Blossom", "🌸", "Fleeting beauty that rewards consistency.", 10, 0.10, "medium"},
	{"rose", "Rose", "🌹", "Takes patience, worth the wait.", 12, 0.08, "medium"},
	{"orchid", "Orchid", "🪻", "Delicate and demanding.", 14, 0.07, "hard"},
	{"lotus", "Lotus", "🪷", "The long game. Blooms for the truly devoted.", 15, 0.067, "hard"},
}

var categories = []categorySeed{
	{"general", "General", "Everyday knowing-you questions."},
	{"romantic_knowing", "Romantic Knowing", "How well do you know their heart?"},
	{"mental_knowing", "Mental Knowing", "Opinions, beliefs and inner workings."},
	{"physical_knowing", "Physical Knowing", "Habits, senses and comforts."},
	{"spiritual_knowing", "Spiritual Knowing", "Meaning, values and the big questions."},
	{"disagreeables_truth", "Disagreeable Truths", "The answers nobody wants to admit."},
	{"creative_fun", "Creative Fun", "Hypotheticals and silly favorites."},
}

var questions = []questionSeed{
	{"general", "What is my favorite color?", 1},
	{"general", "What is my go-to comfort food?", 1},
	{"general", "What time do I usually wake up?", 1},
	{"general", "What is my favorite season?", 1},
	{"general", "What was my first pet's name?", 2},
	{"general", "What song do I play on repeat?", 2},
	{"general", "What is my dream travel destination?", 2},
	{"general", "What am I most afraid of?", 3},
	{"general", "What childhood memory do I bring up the most?", 3},
	{"general", "What would I do with a free afternoon and no obligations?", 3},

	{"romantic_knowing", "Where was our first date?", 1},
	{"romantic_knowing", "What do I consider the most romantic gesture?", 2},
	{"romantic_knowing", "What little thing do you do that secretly delights me?", 3},

	{"mental_knowing", "What topic could I talk about for hours?", 1},
	{"mental_knowing", "What is my most controversial opinion?", 2},
	{"mental_knowing", "What decision do I most second-guess?", 3},

	{"physical_knowing", "Am I a morning person or a night owl?", 1},
	{"physical_knowing", "What smell instantly relaxes me?", 2},
	{"physical_knowing", "What is my tell when I'm exhausted?", 3},

	{"spiritual_knowing", "What do I believe happens after we die?", 2},
	{"spiritual_knowing", "What gives my life the most meaning right now?", 3},

	{"disagreeables_truth", "What habit of mine annoys you the most?", 2},
	{"disagreeables_truth", "What argument do we keep having without resolving?", 3},

	{"creative_fun", "If I could have any superpower, what would I pick?", 1},
	{"creative_fun", "What fictional world would I move to tomorrow?", 2},
}

func main() {
	dbPath := flag.String("db", "./entwine.db", "path to the database file")
	demo := flag.Bool("demo", false, "also create a pair of demo users")
	flag.Parse()

	db, err := database.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	for _, p := range plants {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO plants (id, name, emoji, description, duration_days, base_growth_rate, difficulty)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.id, p.name, p.emoji, p.description, p.durationDays, p.baseGrowthRate, p.difficulty)
		if err != nil {
			log.Fatalf("Failed to seed plant %s: %v", p.id, err)
		}
	}
	log.Printf("Seeded %d plants", len(plants))

	categoryIDs := make(map[string]int, len(categories))
	for _, c := range categories {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO question_categories (category, name, description)
			VALUES (?, ?, ?)`,
			c.slug, c.name, c.description)
		if err != nil {
			log.Fatalf("Failed to seed category %s: %v", c.slug, err)
		}
		var id int
		if err := db.Get(&id, `SELECT id FROM question_categories WHERE category = ?`, c.slug); err != nil {
			log.Fatalf("Failed to look up category %s: %v", c.slug, err)
		}
		categoryIDs[c.slug] = id
	}
	log.Printf("Seeded %d categories", len(categories))

	seeded := 0
	for i, q := range questions {
		categoryID, ok := categoryIDs[q.category]
		if !ok {
			log.Fatalf("Question references unknown category %s", q.category)
		}
		var exists int
		err := db.Get(&exists, `SELECT COUNT(*) FROM questions WHERE category_id = ? AND question_text = ?`,
			categoryID, q.text)
		if err != nil {
			log.Fatalf("Failed to check question: %v", err)
		}
		if exists > 0 {
			continue
		}
		_, err = db.Exec(`
			INSERT INTO questions (category_id, question_text, points, ordinal)
			VALUES (?, ?, ?, ?)`,
			categoryID, q.text, q.points, i+1)
		if err != nil {
			log.Fatalf("Failed to seed question: %v", err)
		}
		seeded++
	}
	log.Printf("Seeded %d questions", seeded)

	if *demo {
		for _, username := range []string{"demo_a", "demo_b"} {
			if _, err := db.Exec(`INSERT OR IGNORE INTO users (username) VALUES (?)`, username); err != nil {
				log.Fatalf("Failed to seed demo user %s: %v", username, err)
			}
		}
		log.Printf("Seeded demo users demo_a, demo_b")
	}
}
