// Package ask provides the wire representation of the QueryBot /ask endpoint
// and the fixed reply strings shown when the server has nothing to offer.
package ask

// Request is the body POSTed to /ask.
type Request struct {
	Query string `json:"query"`
}
