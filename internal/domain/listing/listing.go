// Package listing defines the listings record: the sole concrete table of
// this deployment, its field parsing rules and its derived summary.
package listing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/amiralserge/homevec/internal/domain"
)

// Table is the declared table name for listings.
const Table = "listings"

// Column names of the listings table.
const (
	ColID                      = "id"
	ColTextVector              = "text_vector"
	ColImageVector             = "image_vector"
	ColImage                   = "image"
	ColNeighborhood            = "neighborhood"
	ColPrice                   = "price"
	ColBedrooms                = "bedrooms"
	ColBathrooms               = "bathrooms"
	ColHouseSize               = "house_size"
	ColDescription             = "description"
	ColNeighborhoodDescription = "neighborhood_description"
	ColSummary                 = "summary"
)

// Listing is one real-estate listing row. Rows are written once during
// population and read back by id or by similarity; they are never mutated
// in place.
type Listing struct {
	ID                      string
	TextVector              []float32
	ImageVector             []float32
	Image                   []byte
	Neighborhood            string
	Price                   float64
	Bedrooms                int
	Bathrooms               float64
	HouseSize               float64
	Description             string
	NeighborhoodDescription string
	Summary                 string
}

// Schema declares the listings table. Vector dimensions come from the
// configured embedders.
func Schema(textDim, imageDim int) *domain.Schema {
	return &domain.Schema{
		PrimaryKey: ColID,
		Fields: []domain.Field{
			{Name: ColID, Kind: domain.FieldTag},
			{Name: ColTextVector, Kind: domain.FieldVector, VectorDim: textDim},
			{Name: ColImageVector, Kind: domain.FieldVector, VectorDim: imageDim},
			{Name: ColImage, Kind: domain.FieldBytes},
			{Name: ColNeighborhood, Kind: domain.FieldTag},
			{Name: ColPrice, Kind: domain.FieldNumeric},
			{Name: ColBedrooms, Kind: domain.FieldNumeric},
			{Name: ColBathrooms, Kind: domain.FieldNumeric},
			{Name: ColHouseSize, Kind: domain.FieldNumeric},
			{Name: ColDescription, Kind: domain.FieldText},
			{Name: ColNeighborhoodDescription, Kind: domain.FieldText},
			{Name: ColSummary, Kind: domain.FieldText},
		},
	}
}

// FromRecord builds a validated listing from raw extract fields (keyed by
// column name). A missing id is generated; a missing summary is derived.
func FromRecord(fields map[string]string) (*Listing, error) {
	price, err := ParsePrice(fields[ColPrice])
	if err != nil {
		return nil, err
	}
	size, err := ParseHouseSize(fields[ColHouseSize])
	if err != nil {
		return nil, err
	}
	bedrooms, err := parseCount(ColBedrooms, fields[ColBedrooms])
	if err != nil {
		return nil, err
	}
	bathrooms, err := parseNonNegative(ColBathrooms, fields[ColBathrooms])
	if err != nil {
		return nil, err
	}

	l := &Listing{
		ID:                      fields[ColID],
		Neighborhood:            fields[ColNeighborhood],
		Price:                   price,
		Bedrooms:                bedrooms,
		Bathrooms:               bathrooms,
		HouseSize:               size,
		Description:             fields[ColDescription],
		NeighborhoodDescription: fields[ColNeighborhoodDescription],
		Summary:                 fields[ColSummary],
	}
	if l.ID == "" {
		l.ID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if l.Summary == "" {
		l.Summary = DeriveSummary(l)
	}
	return l, nil
}

// DeriveSummary renders the fixed summary template from the listing
// fields. The formatting is locale-independent and deterministic:
// re-deriving from the same field values is byte-identical.
func DeriveSummary(l *Listing) string {
	return fmt.Sprintf(`
Neighborhood: %s
Price: $%s
Bedrooms: %d
Bathrooms: %s
House Size: %.2f sqft
Description: %s
Neighborhood Description: %s
`,
		l.Neighborhood,
		formatThousands(l.Price),
		l.Bedrooms,
		strconv.FormatFloat(l.Bathrooms, 'f', -1, 64),
		l.HouseSize,
		l.Description,
		l.NeighborhoodDescription,
	)
}

// ParsePrice parses a price that may carry a currency symbol and thousands
// separators in any order. Empty input yields 0.
func ParsePrice(s string) (float64, error) {
	return parseAmount(ColPrice, s, "$")
}

// ParseHouseSize parses a house size that may carry thousands separators
// and a unit suffix. Empty input yields 0.
func ParseHouseSize(s string) (float64, error) {
	return parseAmount(ColHouseSize, s, "sqft")
}

func parseAmount(field, s, token string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, token, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &domain.ParseError{Field: field, Value: s, Err: errors.New("not a number")}
	}
	if v < 0 {
		return 0, &domain.ParseError{Field: field, Value: s, Err: errors.New("negative value")}
	}
	return v, nil
}

func parseCount(field, s string) (int, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, &domain.ParseError{Field: field, Value: s, Err: errors.New("not an integer")}
	}
	if n < 0 {
		return 0, &domain.ParseError{Field: field, Value: s, Err: errors.New("negative value")}
	}
	return n, nil
}

func parseNonNegative(field, s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &domain.ParseError{Field: field, Value: s, Err: errors.New("not a number")}
	}
	if v < 0 {
		return 0, &domain.ParseError{Field: field, Value: s, Err: errors.New("negative value")}
	}
	return v, nil
}

// formatThousands renders a non-negative amount with comma thousands
// separators, keeping two decimals only when the amount is fractional.
func formatThousands(v float64) string {
	decimals := 0
	if v != math.Trunc(v) {
		decimals = 2
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

// ToFields flattens the listing into store hash fields. Vectors are
// serialized as little-endian float32 bytes, matching the FT index layout.
func (l *Listing) ToFields() map[string]string {
	return map[string]string{
		ColID:                      l.ID,
		ColTextVector:              string(encodeVector(l.TextVector)),
		ColImageVector:             string(encodeVector(l.ImageVector)),
		ColImage:                   string(l.Image),
		ColNeighborhood:            l.Neighborhood,
		ColPrice:                   strconv.FormatFloat(l.Price, 'f', -1, 64),
		ColBedrooms:                strconv.Itoa(l.Bedrooms),
		ColBathrooms:               strconv.FormatFloat(l.Bathrooms, 'f', -1, 64),
		ColHouseSize:               strconv.FormatFloat(l.HouseSize, 'f', -1, 64),
		ColDescription:             l.Description,
		ColNeighborhoodDescription: l.NeighborhoodDescription,
		ColSummary:                 l.Summary,
	}
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
