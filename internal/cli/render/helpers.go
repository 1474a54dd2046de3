package render

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error the way every command reports failures
func FormatError(err error) string {
	return fmt.Sprintf("%s %v", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// FormatAddress renders an address, or "-" for the zero address
func FormatAddress(addr common.Address) string {
	if addr == (common.Address{}) {
		return "-"
	}
	return addr.Hex()
}
