package checkout

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/textnorm"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/hours"
)

// Reply ids of the checkout buttons and lists.
const (
	ReplyNameYes     = "name_yes"
	ReplyNameOther   = "name_other"
	ReplyPickup      = "delivery_pickup"
	ReplyDelivery    = "delivery_home"
	ReplyAddressSame = "address_same"
	ReplyASAP        = "time_asap"
	ReplyConfirm     = "confirm"
	ReplyCancel      = "cancel"

	slotPrefix = "time_"
	asapLabel  = "Lo antes posible"
)

const (
	minName    = 2
	maxName    = 60
	minAddress = 8
)

var (
	cancelWords  = []string{"cancelar", "cancela", "salir", "menu"}
	summaryStops = []string{ReplyCancel, "cancelar", "cancela", "no", "cambiar", "modificar"}
	yesWords     = []string{ReplyNameYes, "si", "sip", "ok", "correcto", "yes", "claro", "asi es"}
	pickupWords  = []string{ReplyPickup, "recoger", "recojo", "tienda", "pickup", "paso por el"}
	homeWords    = []string{ReplyDelivery, "domicilio", "envio", "delivery", "a casa", "llevar"}
	asapWords    = []string{ReplyASAP, "lo antes posible", "asap", "ya", "ahorita", "cuanto antes"}
	sameWords    = []string{ReplyAddressSame, "misma", "la misma", "misma direccion"}

	confirmPattern = regexp.MustCompile(`\b(confirmar|confirmo|confirm|si|ok|okay|yes|dale|listo)\b`)
	timePattern    = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm|hrs|h)?\b`)
	namePrefixes   = []string{"a nombre de ", "me llamo ", "mi nombre es ", "soy "}
)

// parseName trims conversational prefixes and validates the result.
func parseName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	lower := strings.ToLower(name)
	for _, p := range namePrefixes {
		if strings.HasPrefix(lower, p) {
			name = strings.TrimSpace(name[len(p):])
			break
		}
	}
	name = strings.Trim(name, ".,!¡¿? ")

	n := utf8.RuneCountInString(name)
	if n < minName || n > maxName {
		return "", false
	}
	if strings.IndexFunc(name, unicode.IsLetter) < 0 {
		return "", false
	}
	return name, true
}

// parseDelivery recognizes the delivery method in a normalized text.
func parseDelivery(text string) (domain.DeliveryMethod, bool) {
	switch {
	case textnorm.HasAny(text, pickupWords...):
		return domain.DeliveryPickup, true
	case textnorm.HasAny(text, homeWords...):
		return domain.DeliveryDelivery, true
	}
	return "", false
}

// parsePickupTime accepts ASAP phrases, slot reply ids and wall times inside
// business hours. A bare hour before opening is read as p.m. ("a las 6").
func parsePickupTime(text string, sched *hours.Schedule) (string, error) {
	if textnorm.HasAny(text, asapWords...) {
		return asapLabel, nil
	}
	if strings.HasPrefix(text, slotPrefix) {
		text = strings.TrimPrefix(text, slotPrefix)
	}

	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return "", errNoTime
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "":
		if hour < 12 && !sched.Contains(hour, minute) && sched.Contains(hour+12, minute) {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return "", errNoTime
	}
	if !sched.Contains(hour, minute) {
		return "", fmt.Errorf("%w: %02d:%02d", errClosedAt, hour, minute)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// parseAddress accepts free text that looks like a street address.
func parseAddress(raw string) (string, bool) {
	addr := strings.TrimSpace(raw)
	if utf8.RuneCountInString(addr) < minAddress || !strings.ContainsRune(addr, ' ') {
		return "", false
	}
	return addr, true
}

// locationAddress renders a shared location as an address line.
func locationAddress(loc *domain.Location) string {
	switch {
	case loc.Address != "" && loc.Name != "":
		return loc.Name + ", " + loc.Address
	case loc.Address != "":
		return loc.Address
	case loc.Name != "":
		return loc.Name
	}
	return fmt.Sprintf("Ubicación %.5f, %.5f", loc.Latitude, loc.Longitude)
}
