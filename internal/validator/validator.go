// Package validator holds the field-level rules for member and event
// records: CPF check digits, phone and date normalization, and the
// display formats used across reports and exports.
package validator

import (
	"fmt"
	"regexp"
)

var (
	nonDigitsRegex = regexp.MustCompile(`\D`)
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// NormalizeCPF strips everything but digits, so "111.444.777-35" and
// "11144477735" compare equal. Records store the normalized form.
func NormalizeCPF(cpf string) string {
	return nonDigitsRegex.ReplaceAllString(cpf, "")
}

// ValidateCPF checks the two verification digits of a CPF. Input may be
// formatted or bare. Sequences of a single repeated digit pass the
// arithmetic but are not real CPFs, so they are rejected.
func ValidateCPF(cpf string) bool {
	digits := NormalizeCPF(cpf)
	if len(digits) != 11 {
		return false
	}

	same := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}

	nums := make([]int, 11)
	for i, c := range digits {
		nums[i] = int(c - '0')
	}

	if checkDigit(nums[:9], 10) != nums[9] {
		return false
	}
	return checkDigit(nums[:10], 11) == nums[10]
}

// checkDigit computes one CPF verification digit. The weight starts at
// startWeight and decreases by one per position.
func checkDigit(nums []int, startWeight int) int {
	sum := 0
	for i, n := range nums {
		sum += n * (startWeight - i)
	}
	rest := 11 - sum%11
	if rest >= 10 {
		return 0
	}
	return rest
}

// FormatCPF renders a CPF as XXX.XXX.XXX-XX. Anything that does not
// normalize to 11 digits is returned unchanged.
func FormatCPF(cpf string) string {
	digits := NormalizeCPF(cpf)
	if len(digits) != 11 {
		return cpf
	}
	return fmt.Sprintf("%s.%s.%s-%s", digits[:3], digits[3:6], digits[6:9], digits[9:])
}

// NormalizePhone strips everything but digits. Records store the
// normalized form and format it back only for display.
func NormalizePhone(phone string) string {
	return nonDigitsRegex.ReplaceAllString(phone, "")
}

// ValidatePhone accepts an empty phone (the field is optional) or one
// that normalizes to 10 or 11 digits (DDD plus number).
func ValidatePhone(phone string) bool {
	digits := NormalizePhone(phone)
	if digits == "" {
		return true
	}
	return len(digits) == 10 || len(digits) == 11
}

// FormatPhone renders a Brazilian phone as (DD) DDDD-DDDD for 10 digits
// or (DD) DDDDD-DDDD for 11. Other lengths are returned unchanged.
func FormatPhone(phone string) string {
	digits := nonDigitsRegex.ReplaceAllString(phone, "")
	switch len(digits) {
	case 10:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:6], digits[6:])
	case 11:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:7], digits[7:])
	default:
		return phone
	}
}

// ValidateEmail accepts an empty email (the field is optional) or one
// matching the usual user@domain.tld shape.
func ValidateEmail(email string) bool {
	if email == "" {
		return true
	}
	return emailRegex.MatchString(email)
}
