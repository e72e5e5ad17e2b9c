package domain

type CardDetails struct {
	HolderName string
	Number     string
	ExpMonth   int
	ExpYear    int
	CVV        string
}

// CardAuthResult is the gateway's answer to a card authorization.
// Declined is set when Approved is false; it is gateway wording, safe
// to surface to the caller.
type CardAuthResult struct {
	Approved  bool
	Reference string
	LastFour  string
	Declined  string
}
