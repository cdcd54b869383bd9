package worker

import "math/rand"

var (
	firstNames = []string{
		"Walter", "Skyler", "Jesse", "Hank", "Marie", "Saul", "Steven", "Mike",
		"Gustavo", "Ted", "Lydia", "Gale", "Leonel", "Marco", "Tuco",
	}
	lastNames = []string{
		"White", "Pinkman", "Schrader", "Goodman", "Gomez", "Ehrmantraut", "Fring",
		"Beneke", "Rodarte-Quayle", "Boetticher", "Salamanca",
	}
)

// RandomName returns a "First Last" name for inserted rows.
func RandomName(rnd *rand.Rand) string {
	return firstNames[rnd.Intn(len(firstNames))] + " " + lastNames[rnd.Intn(len(lastNames))]
}
