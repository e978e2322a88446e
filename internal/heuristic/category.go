// Package heuristic maps free-text purchase descriptions to a category with
// display styling. It is the instant, offline fallback used before any tag
// metadata arrives from the server.
package heuristic

import "strings"

// Style is the category guess for a description.
type Style struct {
	Category string
	Color    string // hex
	Icon     string
}

// DefaultStyle is returned when no keyword matches.
var DefaultStyle = Style{Category: "other", Color: "#9399b2", Icon: "tag"}

type mapping struct {
	category string
	color    string
	icon     string
	keywords []string
}

// Ordered: earlier entries take priority, first keyword hit wins.
var mappings = []mapping{
	{"food", "#a6e3a1", "utensils", []string{
		"pizza", "burger", "grocery", "groceries", "restaurant", "lunch",
		"dinner", "breakfast", "coffee", "cafe", "snack", "meal", "food",
		"takeout", "delivery", "sushi", "kebab", "bakery", "beer", "wine",
	}},
	{"transport", "#89b4fa", "bus", []string{
		"taxi", "uber", "bus", "gas", "fuel", "metro", "subway", "train",
		"parking", "toll", "flight", "airline", "tram", "scooter", "ticket",
	}},
	{"shopping", "#f5c2e7", "bag-shopping", []string{
		"shoes", "clothes", "clothing", "shirt", "jacket", "amazon", "shop",
		"store", "mall", "electronics", "headphones", "book", "gift",
	}},
	{"housing", "#fab387", "house", []string{
		"rent", "mortgage", "electricity", "electric", "water", "internet",
		"wifi", "utility", "utilities", "furniture", "repair", "cleaning",
	}},
	{"entertainment", "#cba6f7", "film", []string{
		"movie", "cinema", "netflix", "spotify", "concert", "game", "gaming",
		"museum", "theater", "theatre", "club", "party",
	}},
	{"health", "#f38ba8", "heart-pulse", []string{
		"pharmacy", "doctor", "dentist", "gym", "medicine", "hospital",
		"therapy", "vitamins",
	}},
	{"travel", "#94e2d5", "plane", []string{
		"hotel", "hostel", "airbnb", "vacation", "trip", "travel", "tour",
	}},
}

// Categorize returns the first category whose keyword list has a substring
// match in the lowercased text. First match wins; no attempt is made to find
// a best match. Falls back to DefaultStyle.
func Categorize(text string) Style {
	lower := strings.ToLower(text)
	for _, m := range mappings {
		for _, kw := range m.keywords {
			if strings.Contains(lower, kw) {
				return Style{Category: m.category, Color: m.color, Icon: m.icon}
			}
		}
	}
	return DefaultStyle
}
