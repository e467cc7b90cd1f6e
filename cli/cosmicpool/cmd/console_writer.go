package cmd

import "fmt"

// consoleWriter prints command results, tests replace it to capture the output.
var consoleWriter consolePrinter = stdoutPrinter{}

type (
	consolePrinter interface {
		Println(a ...any)
		Printf(format string, a ...any)
	}

	stdoutPrinter struct{}
)

func (stdoutPrinter) Println(a ...any) {
	fmt.Println(a...)
}

func (stdoutPrinter) Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}
