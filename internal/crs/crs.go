// Package crs resolves a CF grid_mapping attribute set to a coordinate
// reference system name, falling back to WGS84 when no grid mapping is
// declared. No CRS/GIS library appears anywhere in the example corpus, so
// this stays a small standard-library lookup table rather than reaching
// for an out-of-pack dependency (see DESIGN.md).
package crs

import "strings"

// Default is the fallback CRS for datasets with no resolvable grid mapping.
const Default = "WGS84"

// grid_mapping_name -> CRS name, for the handful of CF conventions the
// portal's archive actually uses.
var gridMappingCRS = map[string]string{
	"latitude_longitude":       "WGS84",
	"rotated_latitude_longitude": "WGS84",
	"polar_stereographic":      "EPSG:3995",
	"lambert_azimuthal_equal_area": "EPSG:3035",
	"mercator":                 "EPSG:3857",
	"sinusoidal":               "SR-ORG:6842",
}

// Resolve inspects a variable's global attributes for a CF grid_mapping
// reference (or a direct crs_wkt attribute) and returns the CRS name it
// implies, falling back to Default.
func Resolve(globalAttrs map[string]any, variableAttrs map[string]any) string {
	if wkt, ok := stringAttr(variableAttrs, "crs_wkt"); ok && wkt != "" {
		return wkt
	}
	if wkt, ok := stringAttr(globalAttrs, "crs_wkt"); ok && wkt != "" {
		return wkt
	}

	gridMappingName, ok := stringAttr(variableAttrs, "grid_mapping_name")
	if !ok {
		if ref, ok := stringAttr(variableAttrs, "grid_mapping"); ok {
			if name, ok := stringAttr(globalAttrs, ref+".grid_mapping_name"); ok {
				gridMappingName = name
			}
		}
	}
	if gridMappingName == "" {
		return Default
	}
	if crsName, ok := gridMappingCRS[strings.ToLower(gridMappingName)]; ok {
		return crsName
	}
	return Default
}

func stringAttr(attrs map[string]any, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	v, ok := attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
