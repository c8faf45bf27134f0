package model

// Categories is the closed set of labels a transaction may carry.
// Extractor guesses outside this set are snapped to the nearest label or dropped.
var Categories = []string{
	"Alimentação",
	"Mercado",
	"Transporte",
	"Saúde",
	"Educação",
	"Lazer",
	"Moradia",
	"Vestuário",
	"Serviços",
	"Outros",
}

// IsCategory reports whether name is one of the known labels, compared exactly.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
