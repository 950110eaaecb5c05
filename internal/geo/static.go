package geo

import (
	"strings"

	"github.com/agrisage/agrisage/internal/models"
)

// staticPlaces covers major Indian agricultural regions so the service can
// run keyless. Coordinates are city centers.
var staticPlaces = map[string]Place{
	"delhi":      {Name: "Delhi", Coords: models.Coordinates{Lat: 28.6139, Lon: 77.2090}, State: "Delhi"},
	"new delhi":  {Name: "New Delhi", Coords: models.Coordinates{Lat: 28.6139, Lon: 77.2090}, State: "Delhi"},
	"mumbai":     {Name: "Mumbai", Coords: models.Coordinates{Lat: 19.0760, Lon: 72.8777}, State: "Maharashtra"},
	"pune":       {Name: "Pune", Coords: models.Coordinates{Lat: 18.5204, Lon: 73.8567}, State: "Maharashtra"},
	"bangalore":  {Name: "Bangalore", Coords: models.Coordinates{Lat: 12.9716, Lon: 77.5946}, State: "Karnataka"},
	"bengaluru":  {Name: "Bengaluru", Coords: models.Coordinates{Lat: 12.9716, Lon: 77.5946}, State: "Karnataka"},
	"chennai":    {Name: "Chennai", Coords: models.Coordinates{Lat: 13.0827, Lon: 80.2707}, State: "Tamil Nadu"},
	"hyderabad":  {Name: "Hyderabad", Coords: models.Coordinates{Lat: 17.3850, Lon: 78.4867}, State: "Telangana"},
	"kolkata":    {Name: "Kolkata", Coords: models.Coordinates{Lat: 22.5726, Lon: 88.3639}, State: "West Bengal"},
	"lucknow":    {Name: "Lucknow", Coords: models.Coordinates{Lat: 26.8467, Lon: 80.9462}, State: "Uttar Pradesh"},
	"jaipur":     {Name: "Jaipur", Coords: models.Coordinates{Lat: 26.9124, Lon: 75.7873}, State: "Rajasthan"},
	"chandigarh": {Name: "Chandigarh", Coords: models.Coordinates{Lat: 30.7333, Lon: 76.7794}, State: "Chandigarh"},
	"ludhiana":   {Name: "Ludhiana", Coords: models.Coordinates{Lat: 30.9010, Lon: 75.8573}, State: "Punjab"},
	"amritsar":   {Name: "Amritsar", Coords: models.Coordinates{Lat: 31.6340, Lon: 74.8723}, State: "Punjab"},
	"patna":      {Name: "Patna", Coords: models.Coordinates{Lat: 25.5941, Lon: 85.1376}, State: "Bihar"},
	"bhopal":     {Name: "Bhopal", Coords: models.Coordinates{Lat: 23.2599, Lon: 77.4126}, State: "Madhya Pradesh"},
	"nagpur":     {Name: "Nagpur", Coords: models.Coordinates{Lat: 21.1458, Lon: 79.0882}, State: "Maharashtra"},
	"ahmedabad":  {Name: "Ahmedabad", Coords: models.Coordinates{Lat: 23.0225, Lon: 72.5714}, State: "Gujarat"},
	"kochi":      {Name: "Kochi", Coords: models.Coordinates{Lat: 9.9312, Lon: 76.2673}, State: "Kerala"},
	"guwahati":   {Name: "Guwahati", Coords: models.Coordinates{Lat: 26.1445, Lon: 91.7362}, State: "Assam"},
}

func lookupStatic(key string) (*Place, bool) {
	if p, ok := staticPlaces[key]; ok {
		cp := p
		return &cp, true
	}
	// "city, state" style inputs match on the city part.
	if i := strings.IndexByte(key, ','); i > 0 {
		if p, ok := staticPlaces[strings.TrimSpace(key[:i])]; ok {
			cp := p
			return &cp, true
		}
	}
	return nil, false
}

// soilTypeByState maps Indian states to their dominant soil type, used to
// enrich advisory prompts.
var soilTypeByState = map[string]string{
	"andhra pradesh":    "Red sandy loams & coastal alluvium",
	"assam":             "Alluvial (Brahmaputra valley)",
	"bihar":             "Alluvial (Ganga plains)",
	"chhattisgarh":      "Red & yellow",
	"gujarat":           "Black cotton (regur) & alluvial",
	"haryana":           "Alluvial",
	"karnataka":         "Red & lateritic; black in north",
	"kerala":            "Lateritic",
	"madhya pradesh":    "Black cotton (regur) & red",
	"maharashtra":       "Black cotton (regur)",
	"odisha":            "Lateritic & coastal alluvium",
	"punjab":            "Alluvial",
	"rajasthan":         "Desert sandy & alluvial (eastern)",
	"tamil nadu":        "Red loams & lateritic",
	"telangana":         "Red sandy loams & black cotton (regur)",
	"uttar pradesh":     "Alluvial (Ganga plains)",
	"uttarakhand":       "Mountain soils",
	"west bengal":       "Alluvial (Ganga-Brahmaputra delta)",
	"delhi":             "Alluvial",
	"chandigarh":        "Alluvial",
	"jammu and kashmir": "Mountain soils",
}

// SoilTypeForState returns the dominant soil type for an Indian state, or
// an empty string when unknown.
func SoilTypeForState(state string) string {
	return soilTypeByState[strings.ToLower(strings.TrimSpace(state))]
}
