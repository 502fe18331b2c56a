// Package phone приводит узбекские номера телефонов к виду, который ожидает бэкенд:
// только цифры с кодом страны 998 и без знака "+".
package phone

import (
	"regexp"
	"strings"
)

// CountryCode — код Узбекистана.
const CountryCode = "998"

var (
	nonDigits = regexp.MustCompile(`\D`)
	valid     = regexp.MustCompile(`^9989\d{8}$`)
)

// Normalize убирает все нецифровые символы и добавляет код страны, если его нет.
//
//	Normalize("+998 90 123-45-67") == "998901234567"
//	Normalize("901234567")         == "998901234567"
func Normalize(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, CountryCode) {
		return digits
	}
	return CountryCode + digits
}

// Valid проверяет нормализованный номер: 998, затем 9 и ещё восемь цифр.
func Valid(normalized string) bool {
	return valid.MatchString(normalized)
}

// Display возвращает номер в виде "+998XXXXXXXXX".
func Display(raw string) string {
	return "+" + Normalize(raw)
}
