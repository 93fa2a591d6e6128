// Package translate formats user visible messages for the user's locale.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

const defaultLocale = "en-US"

var (
	printerOnce sync.Once
	printer     *message.Printer
)

// locales returns the preferred user locales, most preferred first.
func locales() []string {
	found, err := locale.GetLocales()
	if err != nil {
		log.Printf("regvm: locale: %v", err)
	}

	if len(found) == 0 {
		found = []string{defaultLocale}
	}

	return found
}

// Printer returns the shared message printer.
func Printer() *message.Printer {
	printerOnce.Do(func() {
		printer = message.NewPrinter(message.MatchLanguage(locales()...))
	})

	return printer
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return Printer().Sprintf(key, args...)
}
