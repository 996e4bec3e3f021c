package listings

import (
	"fmt"

	"github.com/amiralserge/homevec/internal/db"
	"github.com/amiralserge/homevec/internal/domain"
	"github.com/amiralserge/homevec/internal/domain/listing"
)

// buildIndexDef maps the declared schema onto an FT index definition.
// Bytes fields (raw images) are stored in the hash but never indexed.
func buildIndexDef(schema *domain.Schema) (*db.IndexDefinition, error) {
	fields := make([]db.IndexField, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		switch f.Kind {
		case domain.FieldTag:
			fields = append(fields, db.IndexField{Name: f.Name, Type: db.IndexFieldTag})
		case domain.FieldNumeric:
			fields = append(fields, db.IndexField{Name: f.Name, Type: db.IndexFieldNumeric})
		case domain.FieldText:
			fields = append(fields, db.IndexField{Name: f.Name, Type: db.IndexFieldText})
		case domain.FieldVector:
			fields = append(fields, db.IndexField{
				Name:           f.Name,
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorFlat,
				VectorDim:      f.VectorDim,
				VectorDistance: db.DistanceCosine,
			})
		case domain.FieldBytes:
			// stored only
		default:
			return nil, fmt.Errorf("field %s: unsupported kind %d", f.Name, f.Kind)
		}
	}

	def := &db.IndexDefinition{
		Name:     indexName(),
		Prefixes: []string{rowPrefix()},
		Fields:   fields,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// vectorDims reads the declared vector dimensions back out of the schema.
func vectorDims(schema *domain.Schema) (textDim, imageDim int) {
	if f, ok := schema.Field(listing.ColTextVector); ok {
		textDim = f.VectorDim
	}
	if f, ok := schema.Field(listing.ColImageVector); ok {
		imageDim = f.VectorDim
	}
	return textDim, imageDim
}
