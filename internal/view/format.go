// Package view renders the catalog pages as templ components.
package view

//go:generate go tool templ generate

import (
	"strconv"
	"strings"
	"time"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

const dateLayout = "2006-01-02"

func formatPrice(price *float64) string {
	if price == nil {
		return ""
	}
	return "$" + strconv.FormatFloat(*price, 'f', -1, 64)
}

func priceValue(price *float64) string {
	if price == nil {
		return ""
	}
	return strconv.FormatFloat(*price, 'f', -1, 64)
}

func formatDate(d *time.Time) string {
	if d == nil {
		return "Fecha desconocida"
	}
	return d.Format(dateLayout)
}

func dateValue(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(dateLayout)
}

func joinSizes(sizes []string) string {
	return strings.Join(sizes, ", ")
}

func galleryTitle(g *domain.Gallery) string {
	if g.Heading == "" {
		return "Atelier"
	}
	return g.Heading
}

// EntryCardID is the DOM id of an entry's admin card.
func EntryCardID(id string) string {
	return "entry-" + id
}

func entryPath(e domain.ResolvedEntry) string {
	return "/admin/" + string(e.Kind) + "/" + e.ID
}

// postAction is a Datastar expression posting to url.
func postAction(url string) string {
	return "@post('" + url + "')"
}

func confirmAction(question, url string) string {
	return "confirm('" + question + "') && " + postAction(url)
}

func photoSlots() []string {
	slots := make([]string, domain.MaxPhotoSlots)
	for i := range slots {
		slots[i] = domain.SlotKey(i)
	}
	return slots
}

func slotLabel(i int) string {
	return "Foto " + strconv.Itoa(i+1)
}
