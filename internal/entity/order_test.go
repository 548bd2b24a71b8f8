package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDespachoMissingFields(t *testing.T) {
	full := Despacho{
		Nombre:    "Ana Rojas",
		Telefono:  "+56911112222",
		Email:     "ana@example.com",
		Direccion: "Av. Providencia 123",
		Comuna:    "Providencia",
		Region:    "Metropolitana",
	}
	assert.Empty(t, full.MissingFields())

	partial := Despacho{Nombre: "Ana Rojas", Email: "ana@example.com"}
	assert.ElementsMatch(t,
		[]string{"telefono", "direccion", "comuna", "region"},
		partial.MissingFields())

	// Notas is optional
	full.Notas = ""
	assert.Empty(t, full.MissingFields())
}
