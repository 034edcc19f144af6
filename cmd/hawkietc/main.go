// Command hawkietc is the HAWK-I exposure time calculator.
//
//	hawkietc limit --filter Ks --exptime 3600 --percentile 50 --snr 5
//	hawkietc snr --filter J --exptime 600 --percentile 70 --mag 20 --mag 21
//	hawkietc filters
package main

import (
	"errors"
	"os"

	"github.com/star/hawkietc/internal/etc"
)

// Exit codes by error kind.
const (
	exitError         = 1
	exitConfiguration = 2
	exitNetwork       = 3
	exitNumerical     = 4
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, etc.ErrConfiguration):
		return exitConfiguration
	case errors.Is(err, etc.ErrNetwork):
		return exitNetwork
	case errors.Is(err, etc.ErrNumerical):
		return exitNumerical
	default:
		return exitError
	}
}
