package sri

import "unicode"

// BuyerIDType devuelve el código de tipoIdentificacionComprador (Tabla 6).
// El consumidor final se evalúa antes que la longitud: 9999999999999 también mide 13.
func BuyerIDType(id string) string {
	switch {
	case id == FinalConsumerID:
		return BuyerIDConsumidorFin
	case len(id) == 13 && isDigits(id):
		return BuyerIDRUC
	case len(id) == 10 && isDigits(id):
		return BuyerIDCedula
	default:
		return BuyerIDPasaporte
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
