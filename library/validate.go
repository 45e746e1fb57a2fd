package library

import "strings"

// validateEmail applies the registration email format rule: exactly one '@'
// separating a non-empty local part from a domain of at least three
// characters that contains a dot.
func validateEmail(email string) error {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return validationf("email %q must contain exactly one '@'", email)
	}
	local, domain := parts[0], parts[1]
	if local == "" {
		return validationf("email %q has an empty local part", email)
	}
	if len(domain) < 3 || !strings.Contains(domain, ".") {
		return validationf("email %q has an invalid domain", email)
	}
	return nil
}

// normalizePhone strips the usual formatting punctuation and checks that
// 10-11 digits remain. Returns the digit-only form.
func normalizePhone(phone string) (string, error) {
	replacer := strings.NewReplacer("-", "", "(", "", ")", "", " ", "")
	digits := replacer.Replace(phone)
	if len(digits) < 10 || len(digits) > 11 {
		return "", validationf("phone %q must have 10-11 digits", phone)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", validationf("phone %q contains non-digit characters", phone)
		}
	}
	return digits, nil
}
