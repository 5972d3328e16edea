package queue

const TypeDocumentIngest = "document:ingest"

// DocumentIngestPayload identifies one document to extract, chunk and
// embed.
type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
}
