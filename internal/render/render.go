// Package render holds every user-visible string the bot sends.
package render

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/YonkeBot/internal/models"
	"github.com/BTreeMap/YonkeBot/internal/util"
)

// UnnamedSeller labels results whose seller never registered a business name.
const UnnamedSeller = "Local sin Nombre"

// Static replies.
const (
	Help = "¡Bienvenido al YonkeBot de Sinaloa! Para buscar, escribe `Busco [pieza]`. " +
		"Para vender, escribe `Vender`. Escribe `cancelar` para salir de cualquier registro."
	GenericError = "Lo siento, ocurrió un error inesperado. Inténtalo de nuevo."
	EmptyQuery   = "Por favor, dime qué pieza estás buscando."
	Cancelled    = "Listo, cancelé el registro. Escribe `Vender` o `Busco [pieza]` cuando quieras."

	AskBusinessName = "¡Hola! Para vender, primero necesito registrar tu negocio.\n\n" +
		"Por favor, dime el *nombre de tu yonke o negocio*."
	AskItemTitle = "¡Perfecto! Vamos a registrar tu pieza paso a paso.\n\n" +
		"¿Cuál es el *nombre de la pieza*? (ej. alternador)"
	AskVehicle   = "¿Para qué *vehículo y año* es? (ej. tsuru 2015)"
	AskCondition = "¿En qué *condición* está, del 1 al 10?"
	AskPrice     = "¿Cuál es el *precio* en pesos? (ej. 800)"

	InvalidBusinessName = "El nombre no puede ir vacío. Dime el *nombre de tu yonke o negocio*."
	InvalidLocation     = "No entendí la ubicación. Escríbela así: *Estado, Municipio, Colonia* (ej. Sinaloa, Culiacán, Centro)."
	InvalidText         = "No recibí nada. Inténtalo de nuevo."
	InvalidCondition    = "La condición debe ser un número del 1 al 10 (ej. 8 o 8/10)."
	InvalidPrice        = "El precio debe ser un número mayor a cero (ej. 800)."
)

// AskLocation asks for the business location after the name was captured.
func AskLocation(businessName string) string {
	return fmt.Sprintf("¡Gracias, *%s*! Ahora dime tu ubicación así: *Estado, Municipio, Colonia* (ej. Sinaloa, Culiacán, Centro).", businessName)
}

// BusinessRegistered confirms business registration.
func BusinessRegistered(businessName string) string {
	return fmt.Sprintf("¡Listo! *%s* quedó registrado. Ya puedes vender: escribe `Vender` seguido de la pieza, vehículo, año, condición y precio.", businessName)
}

// Price renders a price, or "Contactar" when it is absent.
func Price(price int) string {
	if price <= 0 {
		return "Contactar"
	}
	return fmt.Sprintf("$%d", price)
}

// Contact renders a sender identity as a wa.me link target.
func Contact(identity string) string {
	return "wa.me/" + util.StripPhoneScheme(identity)
}

// NoResults reports that a search found nothing.
func NoResults(query string) string {
	return fmt.Sprintf("Lo siento, no encontré nada para \"%s\". 😔", query)
}

// SearchResults renders the matches for query. An empty slice renders NoResults.
func SearchResults(query string, results []models.SearchResult) string {
	if len(results) == 0 {
		return NoResults(query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "¡Encontré %d resultado(s)! 👇\n\n", len(results))
	for _, r := range results {
		seller := strings.TrimSpace(r.SellerName)
		if seller == "" {
			seller = UnnamedSeller
		}
		b.WriteString("---\n")
		fmt.Fprintf(&b, "*Vendido por:* *%s*\n", seller)
		fmt.Fprintf(&b, "*Descripción:* %s\n", r.Description)
		fmt.Fprintf(&b, "*Precio:* %s\n", Price(r.Price))
		fmt.Fprintf(&b, "*Contacto:* `%s`\n\n", Contact(r.Contact))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ListingsCreated confirms the listings that were published.
func ListingsCreated(listings []models.Listing) string {
	if len(listings) == 1 {
		l := listings[0]
		return fmt.Sprintf("¡Publicado! ✅\n%s\n*Precio:* %s", l.Description, Price(l.Price))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "¡Publiqué %d piezas! ✅\n", len(listings))
	for i, l := range listings {
		fmt.Fprintf(&b, "%d. %s, %s\n", i+1, l.Description, Price(l.Price))
	}
	return strings.TrimRight(b.String(), "\n")
}
