package weather

import "strings"

// Coordinates is a circuit location in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// DefaultCoordinates (London) is used for circuits missing from the table.
var DefaultCoordinates = Coordinates{Lat: 51.5074, Lon: -0.1278}

// circuitCoordinates is ordered so partial matches resolve deterministically.
var circuitCoordinates = []struct {
	name   string
	coords Coordinates
}{
	{"Bahrain", Coordinates{26.0325, 50.5106}},
	{"Sakhir", Coordinates{26.0325, 50.5106}},
	{"Saudi Arabia", Coordinates{21.6319, 39.1044}},
	{"Jeddah", Coordinates{21.6319, 39.1044}},
	{"Australia", Coordinates{-37.8497, 144.9680}},
	{"Melbourne", Coordinates{-37.8497, 144.9680}},
	{"Japan", Coordinates{34.8431, 136.5407}},
	{"Suzuka", Coordinates{34.8431, 136.5407}},
	{"China", Coordinates{31.3389, 121.2197}},
	{"Shanghai", Coordinates{31.3389, 121.2197}},
	{"Miami", Coordinates{25.9581, -80.2389}},
	{"Imola", Coordinates{44.3439, 11.7167}},
	{"Emilia Romagna", Coordinates{44.3439, 11.7167}},
	{"Monaco", Coordinates{43.7347, 7.4206}},
	{"Monte Carlo", Coordinates{43.7347, 7.4206}},
	{"Canada", Coordinates{45.5000, -73.5228}},
	{"Montreal", Coordinates{45.5000, -73.5228}},
	{"Montréal", Coordinates{45.5000, -73.5228}},
	{"Spain", Coordinates{41.5700, 2.2611}},
	{"Barcelona", Coordinates{41.5700, 2.2611}},
	{"Austria", Coordinates{47.2197, 14.7647}},
	{"Spielberg", Coordinates{47.2197, 14.7647}},
	{"United Kingdom", Coordinates{52.0786, -1.0169}},
	{"Silverstone", Coordinates{52.0786, -1.0169}},
	{"Hungary", Coordinates{47.5789, 19.2486}},
	{"Budapest", Coordinates{47.5789, 19.2486}},
	{"Belgium", Coordinates{50.4372, 5.9714}},
	{"Spa", Coordinates{50.4372, 5.9714}},
	{"Netherlands", Coordinates{52.3888, 4.5409}},
	{"Zandvoort", Coordinates{52.3888, 4.5409}},
	{"Italy", Coordinates{45.6156, 9.2811}},
	{"Monza", Coordinates{45.6156, 9.2811}},
	{"Azerbaijan", Coordinates{40.3725, 49.8533}},
	{"Baku", Coordinates{40.3725, 49.8533}},
	{"Singapore", Coordinates{1.2914, 103.8644}},
	{"Marina Bay", Coordinates{1.2914, 103.8644}},
	{"United States", Coordinates{30.1328, -97.6411}},
	{"Austin", Coordinates{30.1328, -97.6411}},
	{"Mexico", Coordinates{19.4042, -99.0907}},
	{"Mexico City", Coordinates{19.4042, -99.0907}},
	{"Brazil", Coordinates{-23.7036, -46.6997}},
	{"São Paulo", Coordinates{-23.7036, -46.6997}},
	{"Interlagos", Coordinates{-23.7036, -46.6997}},
	{"Las Vegas", Coordinates{36.1147, -115.1728}},
	{"Qatar", Coordinates{25.4900, 51.4542}},
	{"Lusail", Coordinates{25.4900, 51.4542}},
	{"Abu Dhabi", Coordinates{24.4672, 54.6031}},
	{"Yas Marina", Coordinates{24.4672, 54.6031}},
	{"Yas Island", Coordinates{24.4672, 54.6031}},
}

// LookupCoordinates resolves a circuit, event or country name: exact match
// first, then a case-insensitive substring match in either direction. The
// boolean is false when DefaultCoordinates were returned.
func LookupCoordinates(circuit string) (Coordinates, bool) {
	for _, c := range circuitCoordinates {
		if c.name == circuit {
			return c.coords, true
		}
	}
	needle := strings.ToLower(strings.TrimSpace(circuit))
	if needle == "" {
		return DefaultCoordinates, false
	}
	for _, c := range circuitCoordinates {
		key := strings.ToLower(c.name)
		if strings.Contains(needle, key) || strings.Contains(key, needle) {
			return c.coords, true
		}
	}
	return DefaultCoordinates, false
}
