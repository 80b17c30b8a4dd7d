// Package currencyutils parses and formats the monetary values found in legacy exports.
package currencyutils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotNumeric is returned for amounts with characters other than digits,
// separators and a leading minus sign.
var ErrNotNumeric = errors.New("not a number")

const currencies = `[€$£¥₣₤₧₹₺₽₩฿₫₲₴₸₼₪]|(?i:CHF|EUR|USD|GBP)`

var (
	// currency markers are only stripped as a whole leading or trailing token
	currencyPrefix = regexp.MustCompile(`^(?:` + currencies + `)\s*`)
	currencySuffix = regexp.MustCompile(`\s*(?:` + currencies + `)$`)
	numeric        = regexp.MustCompile(`^-?[\d.,' ]+$`)
	hundred        = decimal.NewFromInt(100)
)

// ParseAmount parses a string representation of an amount into a decimal value
// It handles various formats like "1,234.56", "1.234,56", "1234.56", "1234,56"
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	if strings.TrimSpace(amountStr) == "" {
		return decimal.Zero, nil
	}

	if !numeric.MatchString(stripCurrency(amountStr)) {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, ErrNotNumeric)
	}
	standardized := StandardizeAmount(amountStr)

	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}

	return amount, nil
}

func stripCurrency(s string) string {
	s = strings.TrimSpace(s)
	s = currencyPrefix.ReplaceAllString(s, "")
	s = currencySuffix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseCents parses an amount expressed in cents and returns currency units.
// "1234" yields 12.34 and "1.234,56" yields 12.3456; an empty string is zero.
func ParseCents(centsStr string) (decimal.Decimal, error) {
	cents, err := ParseAmount(centsStr)
	if err != nil {
		return decimal.Zero, err
	}
	return cents.Div(hundred), nil
}

// StandardizeAmount converts various currency string formats to a standard format that can be parsed by decimal.NewFromString
// Handles patterns like "CHF 1'234.56", "€1.234,56", "$1,234.56", "1 234,56", etc.
func StandardizeAmount(amountStr string) string {
	amountStr = strings.ReplaceAll(stripCurrency(amountStr), " ", "")

	if strings.Contains(amountStr, ",") && strings.Contains(amountStr, ".") {
		if strings.LastIndex(amountStr, ".") < strings.LastIndex(amountStr, ",") {
			// European format (1.234,56)
			amountStr = strings.ReplaceAll(amountStr, ".", "")
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			// English format (1,234.56)
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	} else if strings.Contains(amountStr, ",") {
		// Comma is either the decimal separator (1234,56) or a thousand separator (1,234)
		parts := strings.Split(amountStr, ",")
		if len(parts) > 1 && len(parts[len(parts)-1]) <= 2 {
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	}

	// Remove apostrophes used as thousand separators (1'234.56)
	amountStr = strings.ReplaceAll(amountStr, "'", "")

	return amountStr
}

// FormatAmount formats a decimal amount with two decimal places and the given currency.
// Returns strings like "€12.50" or "CHF 12.50"
func FormatAmount(amount decimal.Decimal, currency string) string {
	formattedAmount := amount.StringFixed(2)

	if currency != "" {
		switch strings.ToUpper(currency) {
		case "EUR":
			return "€" + formattedAmount
		case "USD":
			return "$" + formattedAmount
		case "GBP":
			return "£" + formattedAmount
		case "CHF":
			return "CHF " + formattedAmount
		default:
			return currency + " " + formattedAmount
		}
	}

	return formattedAmount
}
