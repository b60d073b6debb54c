package models

// Batch is a contiguous, ordered slice of records yielded by a cursor.
// A batch is never modified after it has been yielded.
type Batch struct {
	// Ordinal is the 1-based position of the batch in its sequence
	Ordinal int
	// Offset is the position of the first record in the source ordering
	Offset  int
	Records []Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int { return len(b.Records) }

// Empty reports whether the batch carries no records.
func (b Batch) Empty() bool { return len(b.Records) == 0 }
