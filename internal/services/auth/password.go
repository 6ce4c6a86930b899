// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords = loadCommonPasswords()

func loadCommonPasswords() map[string]struct{} {
	passwords := make(map[string]struct{})
	file, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return passwords
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		password := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if password != "" && !strings.HasPrefix(password, "#") {
			passwords[password] = struct{}{}
		}
	}
	return passwords
}

// PasswordPolicy describes which passwords an account type accepts.
type PasswordPolicy struct {
	MinLength     int
	RejectNumeric bool
	RejectCommon  bool
	// RejectSimilar compares the password against the account's name and email.
	RejectSimilar bool
}

// CustomerPasswordPolicy applies to self-service registration.
func CustomerPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 6, RejectCommon: true}
}

// AdminPasswordPolicy applies to back-office accounts created from the CLI.
func AdminPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 12, RejectNumeric: true, RejectCommon: true, RejectSimilar: true}
}

// PasswordError lists every rule a password broke.
type PasswordError struct {
	Messages []string
}

func (e *PasswordError) Error() string {
	if len(e.Messages) == 0 {
		return "password does not meet requirements"
	}
	return e.Messages[0]
}

// Check returns a *PasswordError when password violates the policy.
func (p PasswordPolicy) Check(password string, attributes ...string) error {
	var messages []string

	if utf8.RuneCountInString(password) < p.MinLength {
		messages = append(messages, fmt.Sprintf("The password field must be at least %d characters.", p.MinLength))
	}
	if p.RejectNumeric && isEntirelyNumeric(password) {
		messages = append(messages, "The password cannot be entirely numeric.")
	}
	if p.RejectCommon && isCommonPassword(password) {
		messages = append(messages, "This password is too common. Please choose a more secure password.")
	}
	if p.RejectSimilar && isSimilarToAttributes(password, attributes) {
		messages = append(messages, "The password is too similar to your personal information.")
	}

	if len(messages) > 0 {
		return &PasswordError{Messages: messages}
	}
	return nil
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return password != ""
}

func isCommonPassword(password string) bool {
	_, exists := commonPasswords[strings.ToLower(password)]
	return exists
}

func isSimilarToAttributes(password string, attributes []string) bool {
	password = strings.ToLower(password)

	for _, attr := range attributes {
		attr = strings.ToLower(attr)
		// Email addresses are compared by their local part.
		if local, _, ok := strings.Cut(attr, "@"); ok {
			attr = local
		}
		if len(attr) < 3 {
			continue
		}
		if strings.Contains(password, attr) || strings.Contains(attr, password) {
			return true
		}
		if similarity(password, attr) > 0.7 {
			return true
		}
	}
	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return float64(longestCommonSubsequence(a, b)) / float64(max(len(a), len(b)))
}

func longestCommonSubsequence(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
