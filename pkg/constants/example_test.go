package constants_test

import (
	"fmt"
	"net/http"
	"time"

	"github.com/agentstation/lookersync/pkg/constants"
)

// Example demonstrates computing the month boundary values
func Example() {
	now := time.Date(2024, time.February, 14, 9, 30, 0, 0, time.UTC)
	first := now.AddDate(0, 0, 1-now.Day())
	last := first.AddDate(0, 1, -1)

	fmt.Printf("%s=%s\n", constants.AttributeFirstOfMonth, first.Format(constants.DateLayout))
	fmt.Printf("%s=%s\n", constants.AttributeLastOfMonth, last.Format(constants.DateLayout))
	// Output:
	// first_of_month=2024-02-01
	// last_of_month=2024-02-29
}

// Example_timeouts demonstrates timeout constants
func Example_timeouts() {
	client := &http.Client{
		Timeout: constants.DefaultHTTPTimeout,
	}

	fmt.Printf("HTTP timeout: %v\n", client.Timeout)
	fmt.Printf("Shutdown timeout: %v\n", constants.ShutdownTimeout)
	// Output:
	// HTTP timeout: 30s
	// Shutdown timeout: 5s
}

// Example_policy demonstrates the attribute policy lists
func Example_policy() {
	fmt.Println(constants.ExcludedAttributes())
	fmt.Println(constants.SpecialCaseAttributes())
	// Output:
	// [locale number_format]
	// [first_of_month last_of_month]
}
