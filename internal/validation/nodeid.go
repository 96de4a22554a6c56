package validation

import (
	"fmt"
	"regexp"
)

// NodeIDPattern определяет допустимый формат идентификатора узла
// Латинские буквы, цифры, дефис (-), нижнее подчеркивание (_)
// Длина: 3-64 символа
var NodeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

const (
	// MinNodeIDLen минимальная длина идентификатора узла
	MinNodeIDLen = 3
	// MaxNodeIDLen максимальная длина идентификатора узла
	MaxNodeIDLen = 64
)

// ValidateNodeID проверяет, что идентификатор узла соответствует требованиям
// Формат: латинские буквы, цифры, дефис (-), нижнее подчеркивание (_)
// Длина: 3-64 символа
func ValidateNodeID(id string) error {
	if id == "" {
		return fmt.Errorf("node id cannot be empty")
	}

	if len(id) < MinNodeIDLen {
		return fmt.Errorf("node id must be at least %d characters long", MinNodeIDLen)
	}

	if len(id) > MaxNodeIDLen {
		return fmt.Errorf("node id must not exceed %d characters", MaxNodeIDLen)
	}

	if !NodeIDPattern.MatchString(id) {
		return fmt.Errorf("node id can only contain letters (a-z, A-Z), numbers (0-9), hyphens (-), and underscores (_)")
	}

	return nil
}

// ValidateServiceName проверяет имя логического сервиса
// Тот же алфавит, что и для идентификаторов узлов
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	if !NodeIDPattern.MatchString(name) {
		return fmt.Errorf("service name can only contain letters (a-z, A-Z), numbers (0-9), hyphens (-), and underscores (_)")
	}

	return nil
}
