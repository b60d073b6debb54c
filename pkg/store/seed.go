package store

import (
	"io"

	jsonpool "github.com/ajitpratap0/tenderflow/pkg/json"
	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// DecodeJSON streams a JSON array of records from r and hands them to fn in
// slices of at most batchSize. It returns the number of records decoded.
func DecodeJSON(r io.Reader, batchSize int, fn func([]models.Record) error) (int, error) {
	if batchSize < 1 {
		return 0, tendererrors.New(tendererrors.ErrorTypeValidation, "batch size must be at least 1").
			WithDetail("batch_size", batchSize)
	}

	dec := jsonpool.NewArrayDecoder(r)
	batch := make([]models.Record, 0, batchSize)
	total := 0

	for {
		var rec models.Record
		ok, err := dec.Next(&rec)
		if err != nil {
			return total, tendererrors.Wrap(err, tendererrors.ErrorTypeData, "failed to decode record").
				WithDetail("index", total+len(batch))
		}
		if !ok {
			break
		}
		rec.Normalize()
		batch = append(batch, rec)

		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = make([]models.Record, 0, batchSize)
		}
	}

	if len(batch) > 0 {
		if err := fn(batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

// ReadJSON decodes a whole JSON array of records.
func ReadJSON(r io.Reader) ([]models.Record, error) {
	var records []models.Record
	_, err := DecodeJSON(r, 1000, func(batch []models.Record) error {
		records = append(records, batch...)
		return nil
	})
	return records, err
}
