package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/berrydesk/internal/model"
)

// FormWidth clamps a huh form width to the available space.
func FormWidth(width int) int {
	w := width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// FormHeight clamps a huh form height to the available space.
func FormHeight(height int) int {
	h := height - 4
	if h < 10 {
		h = 10
	}
	return h
}

// ValidateRequired rejects blank input.
func ValidateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

// ValidateOptionalDate accepts "" or YYYY-MM-DD.
func ValidateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := model.ParseDate(s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

// ValidateOptionalAmount accepts "" or a non-negative number.
func ValidateOptionalAmount(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	return nil
}

// ParseAmount parses user input such as "150000" or "150,000".
func ParseAmount(s string) (model.Amount, error) {
	clean := strings.NewReplacer(",", "", "¥", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return model.Amount(f), nil
}

// Truncate shortens s to max display cells, adding an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
