// Package knowledge holds the static basketball corpus served by courtside.
package knowledge

import "fmt"

// Category groups related items.
type Category string

const (
	CategoryRules     Category = "rules"
	CategoryPositions Category = "positions"
)

// Item is one titled passage of basketball knowledge.
type Item struct {
	Title    string   `json:"title" toml:"title"`
	Content  string   `json:"content" toml:"content"`
	Category Category `json:"category" toml:"category"`
}

// Text is the form embedded into the vector index and shown as context.
func (i Item) Text() string {
	return fmt.Sprintf("%s: %s", i.Title, i.Content)
}

var rules = []Item{
	{
		Title:    "Basic Basketball Rules",
		Content:  "Basketball is played with two teams of five players each. The objective is to score points by shooting the ball through the opponent's hoop. A field goal is worth 2 or 3 points depending on the distance. Free throws are worth 1 point.",
		Category: CategoryRules,
	},
	{
		Title:    "Scoring System",
		Content:  "2 points for a field goal inside the three-point line, 3 points for a field goal beyond the three-point line, and 1 point for each successful free throw.",
		Category: CategoryRules,
	},
	{
		Title:    "Game Duration",
		Content:  "A standard basketball game consists of four quarters. In the NBA, each quarter is 12 minutes long. Overtime periods are typically 5 minutes each if the game is tied.",
		Category: CategoryRules,
	},
}

var positions = []Item{
	{
		Title:    "Point Guard (PG)",
		Content:  "The point guard is the team's primary ball handler and playmaker. They are responsible for bringing the ball up the court, setting up offensive plays, and distributing the ball to teammates.",
		Category: CategoryPositions,
	},
	{
		Title:    "Shooting Guard (SG)",
		Content:  "The shooting guard is primarily responsible for scoring points through shooting. They often work off screens to get open shots and may also handle the ball.",
		Category: CategoryPositions,
	},
	{
		Title:    "Small Forward (SF)",
		Content:  "The small forward is often the most versatile player on the team. They can score from inside and outside, defend multiple positions, and contribute in various ways.",
		Category: CategoryPositions,
	},
	{
		Title:    "Power Forward (PF)",
		Content:  "The power forward plays near the basket and is responsible for rebounding, scoring in the paint, and defending the post.",
		Category: CategoryPositions,
	},
	{
		Title:    "Center (C)",
		Content:  "The center is typically the tallest player on the team and plays closest to the basket. They are responsible for protecting the rim on defense and rebounding.",
		Category: CategoryPositions,
	},
}

// exampleQuestions are suggested prompts for interactive callers.
var exampleQuestions = []string{
	"What is a pick and roll?",
	"How do you calculate field goal percentage?",
	"What are the responsibilities of a point guard?",
	"What is zone defense?",
	"How many points is a three-pointer worth?",
}

// Categories returns the categories in corpus order.
func Categories() []Category {
	return []Category{CategoryRules, CategoryPositions}
}

// All returns every item, rules first. The slice is a fresh copy.
func All() []Item {
	out := make([]Item, 0, len(rules)+len(positions))
	out = append(out, rules...)
	return append(out, positions...)
}

// ByCategory returns the items of one category, or nil for an unknown one.
func ByCategory(c Category) []Item {
	switch c {
	case CategoryRules:
		return append([]Item(nil), rules...)
	case CategoryPositions:
		return append([]Item(nil), positions...)
	default:
		return nil
	}
}

// Find returns the item with the given title.
func Find(title string) (Item, bool) {
	for _, it := range All() {
		if it.Title == title {
			return it, true
		}
	}
	return Item{}, false
}

// ExampleQuestions returns suggested questions.
func ExampleQuestions() []string {
	return append([]string(nil), exampleQuestions...)
}
