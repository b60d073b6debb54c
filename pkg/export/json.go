package export

import (
	"io"

	jsonpool "github.com/ajitpratap0/tenderflow/pkg/json"
	"github.com/ajitpratap0/tenderflow/pkg/models"
)

// jsonSink writes records as one JSON array or as JSON lines.
type jsonSink struct {
	enc *jsonpool.StreamingEncoder
}

func newJSONSink(w io.Writer, array bool) (*jsonSink, error) {
	enc, err := jsonpool.NewStreamingEncoder(w, array)
	if err != nil {
		return nil, err
	}
	return &jsonSink{enc: enc}, nil
}

func (s *jsonSink) WriteBatch(batch models.Batch) error {
	for i := range batch.Records {
		if err := s.enc.Encode(batch.Records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *jsonSink) Finish(Summary) error {
	return s.enc.Close()
}
