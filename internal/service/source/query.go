package source

// flightSearchQuery asks for every flight of both legs of one date pair with its full fare list.
const flightSearchQuery = `query FlightSearch($input: FlightsQueryInput!) {
  viewer {
    flights(input: $input) {
      searchUrl
      edges {
        node {
          id
          origin
          destination
          direction
          departureDate
          arrivalDate
          flightNo
          currency
          fares {
            fareRef
            passengerType
            class
            type
            availability
            prices {
              afterTax
              beforeTax
              baseBeforeTax
              promotionAmount
            }
          }
        }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables queryVariables `json:"variables"`
}

type queryVariables struct {
	Input flightsInput `json:"input"`
}

type paxInput struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

type flightsInput struct {
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	DepartureDate string   `json:"departureDate"`
	ReturnDate    string   `json:"returnDate"`
	Currency      string   `json:"currency"`
	Pax           paxInput `json:"pax"`
	PromoCode     *string  `json:"promoCode"`
}
