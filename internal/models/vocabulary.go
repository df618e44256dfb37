package models

// Vocabulary holds the selectable box categories and observed species.
type Vocabulary struct {
	Categories []string `json:"types"`
	Species    []string `json:"species"`
}

// DefaultVocabulary seeds a fresh device.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Categories: []string{
			"Nistkasten", "Flachkasten", "Holzkasten", "Holzbetonkasten",
			"FL-Winterkasten", "FL-Sommerkasten",
		},
		Species: []string{
			"Kohlmeise", "Blaumeise", "Meise", "Spatz", "Kleiber",
			"Siebenschläfer", "Leer", "Maus", "Hornissen", "Wespen",
		},
	}
}
