package atcmd

import "strings"

const (
	// CRLF terminates every command line sent to the modem.
	CRLF = "\r\n"

	// MarkerOK is the final success code for a synchronous command.
	MarkerOK = "OK"
	// MarkerError is the final rejection code for a synchronous command.
	MarkerError = "ERROR"
	// MarkerCMEError and MarkerCMSError are verbose equipment error reports.
	MarkerCMEError = "+CME ERROR"
	MarkerCMSError = "+CMS ERROR"
	// MarkerUploadReady signals the modem accepts raw body bytes next.
	MarkerUploadReady = "DOWNLOAD"
)

// defaultMarkers terminate an ordinary synchronous exchange.
var defaultMarkers = []string{
	MarkerOK,
	MarkerError,
	MarkerCMEError,
	MarkerCMSError,
	MarkerUploadReady,
}

// errorMarkers abort a wait regardless of which completion token was asked
// for.
var errorMarkers = []string{
	MarkerError,
	MarkerCMEError,
	MarkerCMSError,
}

// HasTerminal reports whether the accumulated response is complete. With no
// extra markers the default synchronous set applies. When a command supplies
// its own completion tokens (e.g. the asynchronous "+HTTPACTION:" report that
// arrives well after the interim OK), only those tokens and explicit error
// codes terminate the wait.
func HasTerminal(response string, extra ...string) bool {
	markers := defaultMarkers
	if len(extra) > 0 {
		markers = append(extra, errorMarkers...)
	}
	for _, marker := range markers {
		if marker != "" && strings.Contains(response, marker) {
			return true
		}
	}
	return false
}

// IsOK reports whether a response carries the success code.
func IsOK(response string) bool {
	return strings.Contains(response, MarkerOK)
}
