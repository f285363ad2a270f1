package metadata

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/esacci/odpcore/internal/model"
)

// isoDoc is the narrow ISO-19115 MD_Metadata shape the portal reads fixed
// fields out of, per spec.md §4.3.
type isoDoc struct {
	IdentificationInfo struct {
		DataIdentification struct {
			Abstract struct {
				CharacterString string `xml:"CharacterString"`
			} `xml:"abstract"`
			Citation struct {
				CI_Citation struct {
					Title struct {
						CharacterString string `xml:"CharacterString"`
					} `xml:"title"`
					Date []struct {
						CI_Date struct {
							DateTime     string `xml:"date>DateTime"`
							DateTypeCode struct {
								Value string `xml:",chardata"`
							} `xml:"dateType>CI_DateTypeCode"`
						} `xml:"CI_Date"`
					} `xml:"date"`
				} `xml:"CI_Citation"`
			} `xml:"citation"`
			ResourceConstraints []struct {
				MD_Constraints struct {
					UseLimitation []struct {
						CharacterString string `xml:"CharacterString"`
					} `xml:"useLimitation>CharacterString"`
				} `xml:"MD_Constraints"`
			} `xml:"resourceConstraints"`
			ResourceFormat []struct {
				MD_Format struct {
					Name struct {
						CharacterString string `xml:"CharacterString"`
					} `xml:"name"`
				} `xml:"MD_Format"`
			} `xml:"resourceFormat"`
			Extent struct {
				EX_Extent struct {
					GeographicElement struct {
						EX_GeographicBoundingBox struct {
							WestBoundLongitude struct{ Decimal float64 `xml:"Decimal"` } `xml:"westBoundLongitude"`
							EastBoundLongitude struct{ Decimal float64 `xml:"Decimal"` } `xml:"eastBoundLongitude"`
							SouthBoundLatitude struct{ Decimal float64 `xml:"Decimal"` } `xml:"southBoundLatitude"`
							NorthBoundLatitude struct{ Decimal float64 `xml:"Decimal"` } `xml:"northBoundLatitude"`
						} `xml:"EX_GeographicBoundingBox"`
					} `xml:"geographicElement"`
					TemporalElement struct {
						EX_TemporalExtent struct {
							Extent struct {
								TimePeriod struct {
									BeginPosition string `xml:"beginPosition"`
									EndPosition   string `xml:"endPosition"`
								} `xml:"TimePeriod"`
							} `xml:"extent"`
						} `xml:"EX_TemporalExtent"`
					} `xml:"temporalElement"`
				} `xml:"EX_Extent"`
			} `xml:"extent"`
		} `xml:"MD_DataIdentification"`
	} `xml:"identificationInfo"`
}

// ParseISO19115 parses a descxml document into model.IsoBlock fields, per
// spec.md §4.3: file-format hints are canonicalized ("Data are in NetCDF
// format" -> ".nc"); publication/creation dates are read off whichever
// CI_Date entry's dateType code matches "publication"/"creation".
func ParseISO19115(data []byte) (*model.IsoBlock, error) {
	var doc isoDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metadata: parse ISO19115: %w", err)
	}

	di := doc.IdentificationInfo.DataIdentification
	blk := &model.IsoBlock{
		Abstract: di.Abstract.CharacterString,
		Title:    di.Citation.CI_Citation.Title.CharacterString,
	}

	for _, rc := range di.ResourceConstraints {
		for _, lic := range rc.MD_Constraints.UseLimitation {
			if lic.CharacterString != "" {
				blk.Licences = append(blk.Licences, lic.CharacterString)
			}
		}
	}

	var formats []string
	for _, rf := range di.ResourceFormat {
		name := canonicalizeFileFormat(rf.MD_Format.Name.CharacterString)
		if name == ".nc" {
			blk.FileFormat = ".nc"
		}
		if name != "" {
			formats = append(formats, name)
		}
	}
	blk.FileFormats = HarmonizeSingleIntoList(blk.FileFormat, formats)

	bbox := di.Extent.EX_Extent.GeographicElement.EX_GeographicBoundingBox
	if bbox.WestBoundLongitude.Decimal != 0 || bbox.EastBoundLongitude.Decimal != 0 ||
		bbox.SouthBoundLatitude.Decimal != 0 || bbox.NorthBoundLatitude.Decimal != 0 {
		blk.BBox = model.BBox{
			MinX: roundTo4(bbox.WestBoundLongitude.Decimal),
			MinY: roundTo4(bbox.SouthBoundLatitude.Decimal),
			MaxX: roundTo4(bbox.EastBoundLongitude.Decimal),
			MaxY: roundTo4(bbox.NorthBoundLatitude.Decimal),
		}
		blk.HasBBox = true
	}

	tp := di.Extent.EX_Extent.TemporalElement.EX_TemporalExtent.Extent.TimePeriod
	if start, err := time.Parse(time.RFC3339, tp.BeginPosition); err == nil {
		blk.Temporal.Start = start
	}
	if end, err := time.Parse(time.RFC3339, tp.EndPosition); err == nil {
		blk.Temporal.End = end
	}

	for _, d := range di.Citation.CI_Citation.Date {
		ts, err := time.Parse(time.RFC3339, d.CI_Date.DateTime)
		if err != nil {
			continue
		}
		switch d.CI_Date.DateTypeCode.Value {
		case "publication":
			blk.PublicationDate = ts
		case "creation":
			blk.CreationDate = ts
		}
	}

	return blk, nil
}

// canonicalizeFileFormat maps the ISO-19115 resourceFormat free-text name
// to the portal's internal file-format token.
func canonicalizeFileFormat(name string) string {
	if tok, ok := fileFormatTokens[name]; ok {
		return tok
	}
	return name
}

var fileFormatTokens = map[string]string{
	"Data are in NetCDF format":  ".nc",
	"Data are in HDF format":     ".hdf",
	"Data are in GeoTIFF format": ".tiff",
}

func roundTo4(f float64) float64 {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
