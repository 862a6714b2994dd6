package alexa

import "strings"

// EndpointID maps a Home Assistant entity id to an endpoint id. Only the
// first separator is replaced: climate.living_room -> climate_living_room.
func EndpointID(entityID string) string {
	return strings.Replace(entityID, ".", "_", 1)
}

// EntityID is the inverse of EndpointID for ids with one domain separator.
func EntityID(endpointID string) string {
	return strings.Replace(endpointID, "_", ".", 1)
}
