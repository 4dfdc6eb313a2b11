package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Константы валидации
const (
	MinTaskTitleLength       = 3
	MaxTaskTitleLength       = 200
	MinTaskDescriptionLength = 10
	MaxTaskDescriptionLength = 5000
	MinBidMessageLength      = 1
	MaxBidMessageLength      = 2000
	MinDisplayNameLength     = 2
	MaxDisplayNameLength     = 100
	MaxCityLength            = 100
	MaxAddressLength         = 300
	MaxEquipmentNameLength   = 100
	MaxEquipmentCount        = 30
	MinAmount                = 0.0
	MaxAmount                = 100000000.0 // 100 миллионов
)

// ValidateLength проверяет длину строки в рунах.
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

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("некорректный формат email")
	}
	if !strings.Contains(email[at+1:], ".") {
		return fmt.Errorf("некорректный формат email")
	}
	if err := ValidateLength("email", email, 5, 254); err != nil {
		return err
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return fmt.Errorf("пароль должен быть не менее 8 символов")
	}
	return nil
}

// ValidateTaskTitle проверяет заголовок задания.
func ValidateTaskTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("заголовок задания обязателен")
	}
	return ValidateLength("заголовок задания", title, MinTaskTitleLength, MaxTaskTitleLength)
}

// ValidateTaskDescription проверяет описание задания.
func ValidateTaskDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("описание задания обязательно")
	}
	return ValidateLength("описание задания", description, MinTaskDescriptionLength, MaxTaskDescriptionLength)
}

// ValidateBidMessage проверяет сообщение отклика.
func ValidateBidMessage(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("сообщение отклика обязательно")
	}
	return ValidateLength("сообщение отклика", message, MinBidMessageLength, MaxBidMessageLength)
}

// ValidateAmount проверяет денежную сумму (бюджет, сумму отклика).
func ValidateAmount(fieldName string, amount float64) error {
	if amount <= MinAmount {
		return fmt.Errorf("%s должен быть положительным", fieldName)
	}
	if amount > MaxAmount {
		return fmt.Errorf("%s не может превышать %.0f", fieldName, MaxAmount)
	}
	return nil
}

// ValidateCity проверяет название города.
func ValidateCity(city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return fmt.Errorf("город обязателен")
	}
	return ValidateLength("город", city, 0, MaxCityLength)
}

// ValidateCoordinates проверяет географические координаты.
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 {
		return fmt.Errorf("широта должна быть в диапазоне от -90 до 90")
	}
	if longitude < -180 || longitude > 180 {
		return fmt.Errorf("долгота должна быть в диапазоне от -180 до 180")
	}
	return nil
}

// ValidateScheduledAt проверяет, что время выполнения не в прошлом.
// Для срочных заданий время назначается сервером, проверка не нужна.
func ValidateScheduledAt(scheduledAt time.Time, now time.Time) error {
	if scheduledAt.Before(now.Add(-time.Minute)) {
		return fmt.Errorf("время выполнения не может быть в прошлом")
	}
	return nil
}

// ValidateEquipment проверяет список инвентаря задания.
func ValidateEquipment(names []string) error {
	if len(names) > MaxEquipmentCount {
		return fmt.Errorf("количество позиций инвентаря не может превышать %d", MaxEquipmentCount)
	}

	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("название инвентаря не может быть пустым")
		}
		if utf8.RuneCountInString(name) > MaxEquipmentNameLength {
			return fmt.Errorf("название инвентаря не может быть длиннее %d символов", MaxEquipmentNameLength)
		}

		lower := strings.ToLower(name)
		if seen[lower] {
			return fmt.Errorf("инвентарь '%s' указан дважды", name)
		}
		seen[lower] = true
	}

	return nil
}

// ValidateDisplayName проверяет отображаемое имя пользователя.
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("имя обязательно")
	}
	return ValidateLength("имя", name, MinDisplayNameLength, MaxDisplayNameLength)
}
