package taxonomy

import "strings"

// priorityRule routes an ambiguous external label to a specific taxonomy
// entry before the generic matching steps run. These rules exist because
// plain substring matching misclassifies a handful of high-volume provider
// labels (for example "dairy beverage (processed)" would otherwise land on
// a generic beverage entry instead of the dairy one).
type priorityRule struct {
	match  func(label string) bool
	target string // taxonomy entry name
}

var priorityRules = []priorityRule{
	{
		// Noodle labels are split between dried and fresh entries upstream;
		// dried is the default pick.
		match: func(label string) bool {
			return strings.Contains(label, "noodle") || strings.Contains(label, "ramen")
		},
		target: "Noodles (dried)",
	},
	{
		match: func(label string) bool {
			dairy := strings.Contains(label, "dairy") || strings.Contains(label, "milk")
			return dairy && (strings.Contains(label, "beverage") || strings.Contains(label, "processed"))
		},
		target: "Dairy (fresh)",
	},
	{
		match: func(label string) bool {
			return strings.Contains(label, "snack") || strings.Contains(label, "confection")
		},
		target: "Snacks",
	},
}

// MapExternal translates a free-text category label from an external
// provider or classifier into a taxonomy entry. Resolution order is fixed:
// priority substring rules, then exact name match, then containment of each
// entry's primary keyword, then the fallback category. Later steps never
// override an earlier match.
func (s *Snapshot) MapExternal(label string) CategoryEntry {
	folded := foldName(label)
	if folded == "" {
		return s.other
	}

	for _, rule := range priorityRules {
		if !rule.match(folded) {
			continue
		}
		if e, ok := s.ByName(rule.target); ok {
			return e
		}
	}

	if e, ok := s.byName[folded]; ok {
		return e
	}

	// Keyword containment walks entries in id order so the result is
	// deterministic for a fixed snapshot.
	for _, e := range s.entries {
		keyword := primaryKeyword(e.Name)
		if keyword == "" {
			continue
		}
		if strings.Contains(folded, keyword) {
			return e
		}
	}

	return s.other
}

// primaryKeyword is the entry name with any parenthetical qualifier
// removed: "Dairy (fresh)" -> "dairy".
func primaryKeyword(name string) string {
	if i := strings.Index(name, "("); i >= 0 {
		name = name[:i]
	}
	return foldName(name)
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
