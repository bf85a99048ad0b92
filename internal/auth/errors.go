package auth

import "errors"

var (
	ErrCredentialsRequired = errors.New("Usuario y contraseña son obligatorios")
	ErrInvalidCredentials  = errors.New("Usuario o contraseña incorrectos")
	ErrNotAuthenticated    = errors.New("No autenticado")
)
