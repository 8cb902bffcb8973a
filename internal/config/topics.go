package config

const (
	// TopicIngestDocument carries one ingestion task per document.
	TopicIngestDocument = "ingest.document"

	// TopicDocumentStatus carries document status transitions for the notification sink.
	TopicDocumentStatus = "document.status"

	// ChannelIngestWorker is the NSQ channel shared by every ingestion worker.
	ChannelIngestWorker = "ingest-worker"
)

// Topics lists every topic the service publishes to, for pre-creation at startup.
var Topics = []string{TopicIngestDocument, TopicDocumentStatus}
