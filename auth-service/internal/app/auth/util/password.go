package util

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost - стоимость bcrypt (не ниже 10)
const PasswordCost = 12

// bcrypt учитывает только первые 72 байта; x/crypto на более длинный ввод возвращает ошибку
const maxPasswordBytes = 72

// HashPassword хэширует пароль с использованием bcrypt.
// Хэш самоописывающий: алгоритм, стоимость и соль лежат в самой строке.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword(bcryptInput(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// CheckPassword проверяет, соответствует ли пароль хэшу.
// Несовпадение и битый хэш - просто false, не ошибка.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password))
	return err == nil
}

func bcryptInput(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
