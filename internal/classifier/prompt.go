package classifier

import (
	"fmt"
	"strings"

	"github.com/brandpayout/brand-report/internal/types"
)

// BuildPrompt constructs the brand-matching prompt for one sales line.
func BuildPrompt(description string, brands []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Identifica la marca a partir de la siguiente descripción del producto: '%s'. ", description)
	fmt.Fprintf(&b, "Las marcas posibles son: %s. ", strings.Join(brands, ", "))
	b.WriteString("Basado únicamente en la lista proporcionada, ¿a qué marca pertenece probablemente este producto? ")
	b.WriteString("Por favor, devuelve solo el nombre de la marca en mayúsculas y sin ningún signo de puntuación. ")
	b.WriteString("Si no existe la marca retorna " + types.UnknownBrand)
	return b.String()
}
