package roster

import (
	"bytes"
	"context"
	"log"

	"qrattend/internal/queue"
)

// Enqueue hands a roster export to whichever worker consumes q.
func Enqueue(ctx context.Context, q queue.Queue, csvData []byte) error {
	return q.Publish(ctx, queue.Message{Type: queue.TypeRosterImport, Body: csvData})
}

// Run consumes roster import jobs from q until ctx is done. Messages of other
// types are ignored.
func (imp *Importer) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != queue.TypeRosterImport {
			continue
		}
		res, err := imp.ImportCSV(ctx, bytes.NewReader(msg.Body))
		if err != nil {
			log.Printf("roster import job failed: %v", err)
			continue
		}
		log.Printf("roster import job: %d inserted, %d existing, %d invalid, %d failed",
			res.Inserted, res.Existing, res.Invalid, res.Failed)
	}
	return nil
}
