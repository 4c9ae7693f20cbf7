package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// overridden from JWT_SECRET in main
var SecretKey = []byte("change-me-in-env")

func GenerateToken(userID uint, name string, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"name":    name,
		"role":    role,
		"exp":     time.Now().Add(12 * time.Hour).Unix(),
	})
	return token.SignedString(SecretKey)
}

func VerifyToken(tokenString string) (jwt.MapClaims, error) {
	token, _ := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return SecretKey, nil
	})

	if token != nil {
		if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
			return claims, nil
		}
	}
	return nil, errors.New("invalid token")
}
