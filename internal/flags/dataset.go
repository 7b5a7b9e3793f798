package flags

import "github.com/signalflags/signalflags-api/internal/models"

// Categories of the static dataset.
const (
	CategoryAlphabet = "alphabet"
	CategoryNumeral  = "numeral"
)

// dataset holds the international maritime signal flags: the 26 alphabet
// flags and the ten numeral pennants.
var dataset = []models.Flag{
	{ID: "alfa", Name: "Alfa", Meaning: "I have a diver down; keep well clear at slow speed", Category: CategoryAlphabet},
	{ID: "bravo", Name: "Bravo", Meaning: "I am taking in, discharging, or carrying dangerous goods", Category: CategoryAlphabet},
	{ID: "charlie", Name: "Charlie", Meaning: "Affirmative", Category: CategoryAlphabet},
	{ID: "delta", Name: "Delta", Meaning: "Keep clear of me; I am manoeuvring with difficulty", Category: CategoryAlphabet},
	{ID: "echo", Name: "Echo", Meaning: "I am altering my course to starboard", Category: CategoryAlphabet},
	{ID: "foxtrot", Name: "Foxtrot", Meaning: "I am disabled; communicate with me", Category: CategoryAlphabet},
	{ID: "golf", Name: "Golf", Meaning: "I require a pilot", Category: CategoryAlphabet},
	{ID: "hotel", Name: "Hotel", Meaning: "I have a pilot on board", Category: CategoryAlphabet},
	{ID: "india", Name: "India", Meaning: "I am altering my course to port", Category: CategoryAlphabet},
	{ID: "juliett", Name: "Juliett", Meaning: "I am on fire and have dangerous cargo; keep well clear", Category: CategoryAlphabet},
	{ID: "kilo", Name: "Kilo", Meaning: "I wish to communicate with you", Category: CategoryAlphabet},
	{ID: "lima", Name: "Lima", Meaning: "You should stop your vessel instantly", Category: CategoryAlphabet},
	{ID: "mike", Name: "Mike", Meaning: "My vessel is stopped and making no way through the water", Category: CategoryAlphabet},
	{ID: "november", Name: "November", Meaning: "Negative", Category: CategoryAlphabet},
	{ID: "oscar", Name: "Oscar", Meaning: "Man overboard", Category: CategoryAlphabet},
	{ID: "papa", Name: "Papa", Meaning: "All persons should report on board; vessel is about to sail", Category: CategoryAlphabet},
	{ID: "quebec", Name: "Quebec", Meaning: "My vessel is healthy and I request free pratique", Category: CategoryAlphabet},
	{ID: "romeo", Name: "Romeo", Meaning: "Preparing to replenish or receive a tow", Category: CategoryAlphabet},
	{ID: "sierra", Name: "Sierra", Meaning: "I am operating astern propulsion", Category: CategoryAlphabet},
	{ID: "tango", Name: "Tango", Meaning: "Keep clear of me; I am engaged in pair trawling", Category: CategoryAlphabet},
	{ID: "uniform", Name: "Uniform", Meaning: "You are running into danger", Category: CategoryAlphabet},
	{ID: "victor", Name: "Victor", Meaning: "I require assistance", Category: CategoryAlphabet},
	{ID: "whiskey", Name: "Whiskey", Meaning: "I require medical assistance", Category: CategoryAlphabet},
	{ID: "xray", Name: "Xray", Meaning: "Stop carrying out your intentions and watch for my signals", Category: CategoryAlphabet},
	{ID: "yankee", Name: "Yankee", Meaning: "I am dragging my anchor", Category: CategoryAlphabet},
	{ID: "zulu", Name: "Zulu", Meaning: "I require a tug", Category: CategoryAlphabet},
	{ID: "pennant-0", Name: "Numeral 0", Meaning: "Numeral pennant zero", Category: CategoryNumeral},
	{ID: "pennant-1", Name: "Numeral 1", Meaning: "Numeral pennant one", Category: CategoryNumeral},
	{ID: "pennant-2", Name: "Numeral 2", Meaning: "Numeral pennant two", Category: CategoryNumeral},
	{ID: "pennant-3", Name: "Numeral 3", Meaning: "Numeral pennant three", Category: CategoryNumeral},
	{ID: "pennant-4", Name: "Numeral 4", Meaning: "Numeral pennant four", Category: CategoryNumeral},
	{ID: "pennant-5", Name: "Numeral 5", Meaning: "Numeral pennant five", Category: CategoryNumeral},
	{ID: "pennant-6", Name: "Numeral 6", Meaning: "Numeral pennant six", Category: CategoryNumeral},
	{ID: "pennant-7", Name: "Numeral 7", Meaning: "Numeral pennant seven", Category: CategoryNumeral},
	{ID: "pennant-8", Name: "Numeral 8", Meaning: "Numeral pennant eight", Category: CategoryNumeral},
	{ID: "pennant-9", Name: "Numeral 9", Meaning: "Numeral pennant nine", Category: CategoryNumeral},
}

// All returns a copy of the full dataset.
func All() []models.Flag {
	out := make([]models.Flag, len(dataset))
	copy(out, dataset)
	return out
}

// ByCategory returns the flags of one category, or the full set when the
// category is empty.
func ByCategory(category string) []models.Flag {
	if category == "" {
		return All()
	}
	var out []models.Flag
	for _, f := range dataset {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// ByID looks up a single flag.
func ByID(id string) (models.Flag, bool) {
	for _, f := range dataset {
		if f.ID == id {
			return f, true
		}
	}
	return models.Flag{}, false
}
