// Package sri contiene catálogos y utilidades de la Ficha Técnica de Comprobantes
// Electrónicos del SRI (Ecuador), esquema offline.
package sri

// =============================================================================
// Tabla 3 - Tipos de comprobante (codDoc)
// =============================================================================

const (
	DocTypeFactura        = "01"
	DocTypeLiquidacion    = "03"
	DocTypeNotaCredito    = "04"
	DocTypeNotaDebito     = "05"
	DocTypeGuiaRemision   = "06"
	DocTypeRetencion      = "07"
	FacturaSchemaVersion  = "1.1.0"
	FacturaRootElementID  = "comprobante"
)

// =============================================================================
// Tabla 4 - Ambiente y Tabla 2 - Tipo de emisión
// =============================================================================

const (
	EnvironmentTest       = "1" // Pruebas (celcer.sri.gob.ec)
	EnvironmentProduction = "2" // Producción (cel.sri.gob.ec)

	EmissionTypeNormal = "1"

	// DefaultNumericCode es el código numérico de 8 dígitos de la clave de acceso.
	// El SRI admite un valor fijo por emisor.
	DefaultNumericCode = "12345678"
)

// ValidEnvironments ambientes aceptados en la clave de acceso y en infoTributaria.
var ValidEnvironments = map[string]bool{
	EnvironmentTest:       true,
	EnvironmentProduction: true,
}

// =============================================================================
// Tabla 6 - Tipo de identificación del comprador
// =============================================================================

const (
	BuyerIDRUC           = "04"
	BuyerIDCedula        = "05"
	BuyerIDPasaporte     = "06"
	BuyerIDConsumidorFin = "07"
	BuyerIDExterior      = "08"

	// FinalConsumerID identificación genérica de consumidor final.
	FinalConsumerID = "9999999999999"
)

// =============================================================================
// Tabla 16 / 17 - Impuestos y tarifas
// =============================================================================

const (
	TaxCodeIVA = "2"
	TaxCodeICE = "3"

	IVARateCode0      = "0" // 0%
	IVARateCode12     = "2" // 12% (histórico)
	IVARateCode14     = "3" // 14% (histórico)
	IVARateCode15     = "4" // 15% vigente
	IVARateCodeNoObj  = "6" // No objeto de impuesto
	IVARateCodeExento = "7" // Exento de IVA
)

// =============================================================================
// Tabla 24 - Formas de pago y moneda
// =============================================================================

const (
	PaymentSinSistemaFinanciero = "01"
	PaymentTarjetaDebito        = "16"
	PaymentDineroElectronico    = "17"
	PaymentTarjetaPrepago       = "18"
	PaymentTarjetaCredito       = "19"
	PaymentOtrosSistemaFin      = "20"

	CurrencyDolar = "DOLAR"
)

// =============================================================================
// Estados de respuesta de los Web Services offline
// =============================================================================

const (
	ReceptionReceived    = "RECIBIDA"
	ReceptionReturned    = "DEVUELTA"
	AuthorizationGranted = "AUTORIZADO"
	AuthorizationDenied  = "NO AUTORIZADO"
)
