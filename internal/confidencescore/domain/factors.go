package domain

import (
	"strings"

	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
)

// Factor names as persisted in score_factors.
const (
	FactorFoundationIntegrity = "foundationIntegrity"
	FactorRoofCondition       = "roofCondition"
	FactorHVACCondition       = "hvacCondition"
	FactorElectricalSystem    = "electricalSystem"
	FactorPlumbingSystem      = "plumbingSystem"
	FactorFloodRisk           = "floodRisk"
	FactorEPCRating           = "epcRating"
	FactorFireRisk            = "fireRisk"
	FactorCrimeRate           = "crimeRate"
	FactorSubsidenceRisk      = "subsidenceRisk"
	FactorLocalSchools        = "localSchools"
	FactorTransportLinks      = "transportLinks"
	FactorLocalAmenities      = "localAmenities"
)

// FactorKind tells how a factor's value is obtained.
type FactorKind string

const (
	// FactorComputed values are derived from property and asset records.
	FactorComputed FactorKind = "computed"
	// FactorExternal values come from a third-party lookup and may fall back.
	FactorExternal FactorKind = "external"
	// FactorPlaceholder values are constants until a data source exists.
	FactorPlaceholder FactorKind = "placeholder"
)

type FactorSpec struct {
	Name string
	Kind FactorKind
	// Value is the constant used by placeholder factors.
	Value float64
	// AssetCategory is set for system-condition factors.
	AssetCategory string
}

// Catalogue lists every factor in evaluation order.
var Catalogue = []FactorSpec{
	{Name: FactorFoundationIntegrity, Kind: FactorPlaceholder, Value: 80},
	{Name: FactorRoofCondition, Kind: FactorPlaceholder, Value: 75},
	{Name: FactorHVACCondition, Kind: FactorComputed, AssetCategory: propertydomain.CategoryHVAC},
	{Name: FactorElectricalSystem, Kind: FactorComputed, AssetCategory: propertydomain.CategoryElectrical},
	{Name: FactorPlumbingSystem, Kind: FactorComputed, AssetCategory: propertydomain.CategoryPlumbing},
	{Name: FactorFloodRisk, Kind: FactorExternal},
	{Name: FactorEPCRating, Kind: FactorComputed},
	{Name: FactorFireRisk, Kind: FactorPlaceholder, Value: 50},
	{Name: FactorCrimeRate, Kind: FactorPlaceholder, Value: 50},
	{Name: FactorSubsidenceRisk, Kind: FactorPlaceholder, Value: 50},
	{Name: FactorLocalSchools, Kind: FactorPlaceholder, Value: 50},
	{Name: FactorTransportLinks, Kind: FactorPlaceholder, Value: 50},
	{Name: FactorLocalAmenities, Kind: FactorPlaceholder, Value: 50},
}

// CanonicalFactorName maps a case-insensitive factor name to its catalogue
// spelling. Configuration loaders lower-case map keys.
func CanonicalFactorName(name string) (string, bool) {
	for _, factor := range Catalogue {
		if strings.EqualFold(factor.Name, strings.TrimSpace(name)) {
			return factor.Name, true
		}
	}
	return "", false
}
