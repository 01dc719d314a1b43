package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// RootEndpoint returns the current accumulator root
	RootEndpoint = "/root"
	// RootsEndpoint checks whether a root is inside the history window
	RootURLParam   = "root"
	RootsEndpoint  = "/roots/{" + RootURLParam + "}"
	// NullifierEndpoint checks whether a nullifier has been spent
	NullifierURLParam = "nullifier"
	NullifierEndpoint = "/nullifiers/{" + NullifierURLParam + "}"
	// TransfersEndpoint accepts transfer submissions
	TransfersEndpoint = "/transactions/transfer"
	// WithdrawalsEndpoint accepts withdraw submissions
	WithdrawalsEndpoint = "/transactions/withdraw"
	// EventsEndpoint streams the ordered insertion feed
	EventsEndpoint = "/events"
)
