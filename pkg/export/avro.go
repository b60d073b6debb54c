package export

import (
	"fmt"
	"io"

	"github.com/linkedin/goavro/v2"

	jsonpool "github.com/ajitpratap0/tenderflow/pkg/json"
	"github.com/ajitpratap0/tenderflow/pkg/models"
)

// AvroSchema returns the Avro record schema derived from models.RecordSchema.
// Deadlines are timestamp-millis longs.
func AvroSchema() (string, error) {
	fields := make([]map[string]interface{}, 0, len(models.RecordSchema))
	for _, f := range models.RecordSchema {
		var avroType interface{}
		switch f.Type {
		case "double":
			avroType = "double"
		case "timestamp":
			avroType = map[string]string{"type": "long", "logicalType": "timestamp-millis"}
		default:
			avroType = "string"
		}
		fields = append(fields, map[string]interface{}{"name": f.Name, "type": avroType})
	}

	schema, err := jsonpool.Marshal(map[string]interface{}{
		"type":      "record",
		"name":      "Tender",
		"namespace": "tenderflow",
		"fields":    fields,
	})
	if err != nil {
		return "", err
	}
	return string(schema), nil
}

// avroSink appends one OCF block per batch.
type avroSink struct {
	ocf *goavro.OCFWriter
}

func newAvroSink(w io.Writer, blockCodec string) (*avroSink, error) {
	schema, err := AvroSchema()
	if err != nil {
		return nil, err
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create avro codec: %w", err)
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: blockCodec,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create avro writer: %w", err)
	}
	return &avroSink{ocf: ocf}, nil
}

func (s *avroSink) WriteBatch(batch models.Batch) error {
	data := make([]interface{}, len(batch.Records))
	for i, r := range batch.Records {
		data[i] = map[string]interface{}{
			"tender_id":    r.ID,
			"organization": r.Organization,
			"category":     r.Category,
			"location":     r.Location,
			"value":        r.Value,
			"deadline":     r.Deadline,
			"description":  r.Description,
			"link":         r.Link,
		}
	}
	return s.ocf.Append(data)
}

func (s *avroSink) Finish(Summary) error { return nil }
