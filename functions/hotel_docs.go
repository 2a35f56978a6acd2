package functions

import "google.golang.org/genai"

// GetHotelInformationDocsFunctionDeclaration returns the function declaration for the dialogue engine
func GetHotelInformationDocsFunctionDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "GetHotelInformationDocs",
		Description: "Get all the practical information about the hotel"}
}

var docs string = `
Hotel Bellevue is a family-run four star hotel in the city centre, ten
minutes on foot from the main station.
Check-in opens at 15:00 and check-out closes at 11:00; luggage storage is
free of charge on arrival and departure days.
Breakfast is served from 06:30 to 10:30 in the garden room and is included
in every rate.
The hotel has 48 rooms: standard, deluxe, twin, double and family rooms,
plus two suites on the top floor.
Paid parking is available in the courtyard and the reception desk is
staffed around the clock.
Pets up to 10 kg are welcome in selected rooms for a small nightly fee.
`

func GetHotelInformationDocs() string {
	return docs
}
