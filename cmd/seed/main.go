// Command seed loads the foods and nutrients reference tables from JSON
// files and installs the built-in coach personality presets.
package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"lifeone/internal/database"
)

type seedFood struct {
	Name          string             `json:"name"`
	UsdaID        *string            `json:"usdaId"`
	Calories      *float64           `json:"calories"`
	Proteins      *float64           `json:"proteins"`
	Fat           *float64           `json:"fat"`
	Carbohydrates *float64           `json:"carbohydrates"`
	Serving       *float64           `json:"serving"`
	Nutrients     map[string]float64 `json:"nutrients"`
}

type seedNutrient struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

var defaultPresets = []struct {
	name, description, instruction string
}{
	{
		"Supportive",
		"Encouraging and patient, celebrates small wins.",
		"Be warm and encouraging. Celebrate progress, frame setbacks as information, and keep advice gentle but concrete.",
	},
	{
		"Drill Sergeant",
		"Blunt, demanding, no excuses.",
		"Be blunt and demanding. Hold the athlete to their plan, call out skipped sessions directly, and keep answers short.",
	},
	{
		"Analytical",
		"Data-first, explains the reasoning behind every recommendation.",
		"Reason from the athlete's logged numbers. Explain the why behind every recommendation and quantify suggestions where possible.",
	},
}

func main() {
	foodsPath := flag.String("foods", "", "path to a JSON array of foods")
	nutrientsPath := flag.String("nutrients", "", "path to a JSON array of nutrients")
	flag.Parse()

	dbService := database.NewService()
	defer dbService.Close()
	db := dbService.DB()

	if *foodsPath != "" {
		raw, err := os.ReadFile(*foodsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("reading foods file")
		}
		var foods []seedFood
		if err := json.Unmarshal(raw, &foods); err != nil {
			log.Fatal().Err(err).Msg("parsing foods file")
		}
		for _, f := range foods {
			var nutrients any
			if len(f.Nutrients) > 0 {
				encoded, err := json.Marshal(f.Nutrients)
				if err == nil {
					nutrients = string(encoded)
				}
			}
			if _, err := db.Exec(
				`INSERT INTO foods (name, usda_id, calories, proteins, fat, carbohydrates, serving, nutrients)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				f.Name, f.UsdaID, f.Calories, f.Proteins, f.Fat, f.Carbohydrates, f.Serving, nutrients,
			); err != nil {
				log.Fatal().Err(err).Str("food", f.Name).Msg("inserting food")
			}
		}
		log.Info().Int("count", len(foods)).Msg("seeded foods")
	}

	if *nutrientsPath != "" {
		raw, err := os.ReadFile(*nutrientsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("reading nutrients file")
		}
		var nutrients []seedNutrient
		if err := json.Unmarshal(raw, &nutrients); err != nil {
			log.Fatal().Err(err).Msg("parsing nutrients file")
		}
		for _, n := range nutrients {
			if _, err := db.Exec(
				`INSERT INTO nutrients (name, unit) VALUES (?, ?)
				 ON CONFLICT(name) DO UPDATE SET unit = excluded.unit`,
				n.Name, n.Unit,
			); err != nil {
				log.Fatal().Err(err).Str("nutrient", n.Name).Msg("inserting nutrient")
			}
		}
		log.Info().Int("count", len(nutrients)).Msg("seeded nutrients")
	}

	for _, p := range defaultPresets {
		var exists int
		if err := db.QueryRow(
			`SELECT COUNT(*) FROM coach_personality_presets WHERE name = ?`, p.name,
		).Scan(&exists); err != nil {
			log.Fatal().Err(err).Msg("checking preset")
		}
		if exists > 0 {
			continue
		}
		if _, err := db.Exec(
			`INSERT INTO coach_personality_presets (id, name, description, system_instruction)
			 VALUES (?, ?, ?, ?)`,
			uuid.New().String(), p.name, p.description, p.instruction,
		); err != nil {
			log.Fatal().Err(err).Str("preset", p.name).Msg("inserting preset")
		}
	}
	log.Info().Msg("coach presets installed")
}
