package common

import (
	"fmt"
	"strings"

	"taskona-ledger-go/internal/money"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

var nairaPrinter = message.NewPrinter(language.English)

// FormatNaira renders an amount as "₦1,500.00", keeping the sign.
func FormatNaira(m money.Money) string {
	sign := ""
	if m.IsNegative() {
		sign = "-"
		m = m.Neg()
	}
	whole := m.Kobo() / money.KoboPerNaira
	kobo := m.Kobo() % money.KoboPerNaira
	return fmt.Sprintf("%s₦%s.%02d", sign, nairaPrinter.Sprintf("%d", whole), kobo)
}

// ShortId trims long identifiers for table output.
func ShortId(id string) string {
	if id == "" {
		return "none"
	}
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
