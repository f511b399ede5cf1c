package predictor

// DefaultDriverList is the field used when no classification is available
// to supply one.
var DefaultDriverList = []string{
	"VER", "PER", "LEC", "SAI", "NOR", "PIA", "HAM", "RUS", "ALO", "STR",
	"TSU", "RIC", "ALB", "SAR", "ZHO", "BOT", "MAG", "HUL", "GAS", "OCO",
}

// staticNumbers maps three-letter codes to race numbers for feature logs
// keyed by car number.
var staticNumbers = map[string]string{
	"VER": "1", "PER": "11",
	"LEC": "16", "SAI": "55",
	"NOR": "4", "PIA": "81",
	"HAM": "44", "RUS": "63",
	"ALO": "14", "STR": "18",
	"TSU": "22", "RIC": "3",
	"ALB": "23", "SAR": "2",
	"ZHO": "24", "BOT": "77",
	"MAG": "20", "HUL": "27",
	"GAS": "10", "OCO": "31",
	"COL": "43", "BEA": "87", "LAW": "30", "DOO": "12",
}

// DriverDirectory resolves the identifiers a driver may be stored under in
// the feature log.
type DriverDirectory struct {
	numbers map[string]string
}

// NewDriverDirectory returns a directory seeded with the static number map.
func NewDriverDirectory() *DriverDirectory {
	d := &DriverDirectory{numbers: make(map[string]string, len(staticNumbers))}
	for code, number := range staticNumbers {
		d.numbers[code] = number
	}
	return d
}

// Register records a code/number pair learned from a session entry list.
func (d *DriverDirectory) Register(code, number string) {
	if code != "" && number != "" {
		d.numbers[code] = number
	}
}

// Candidates lists the identifiers to try for code, the code itself first.
func (d *DriverDirectory) Candidates(code string) []string {
	ids := []string{code}
	if number, ok := d.numbers[code]; ok && number != code {
		ids = append(ids, number)
	}
	return ids
}
