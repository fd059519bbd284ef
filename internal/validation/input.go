package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength       = 3
	MaxUsernameLength       = 30
	MinDisplayNameLength    = 2
	MaxDisplayNameLength    = 100
	MaxAddressLineLength    = 200
	MaxCityLength           = 100
	MaxServiceAreaLength    = 20
	MinDisputeReasonLength  = 3
	MaxDisputeReasonLength  = 200
	MaxDisputeDescription   = 5000
	MaxResolutionLength     = 5000
	MinSquareMeters         = 1.0
	MaxSquareMeters         = 100000.0
)

// validTimeSlot — слоты вида "09:00-12:00".
var validTimeSlot = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]-([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart, domainPart := parts[0], parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя содержит недопустимые символы")
	}

	return nil
}

// ValidateTimeSlot проверяет формат слота времени вида "09:00-12:00".
func ValidateTimeSlot(slot string) error {
	if !validTimeSlot.MatchString(slot) {
		return fmt.Errorf("слот времени должен иметь формат HH:MM-HH:MM")
	}
	return nil
}

// ValidateSquareMeters проверяет заявленную площадь участка.
func ValidateSquareMeters(sqm float64) error {
	if sqm < MinSquareMeters || sqm > MaxSquareMeters {
		return fmt.Errorf("площадь участка должна быть от %.0f до %.0f кв. м", MinSquareMeters, MaxSquareMeters)
	}
	return nil
}
