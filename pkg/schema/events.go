package schema

// Event type constants published on the preview stream and recorded in the
// revision log.
const (
	EventModelMutated  = "model_mutated"
	EventModelReplaced = "model_replaced"
	EventTypeSwitched  = "type_switched"

	EventSourceGenerated = "source_generated"
	EventPreviewRendered = "preview_rendered"
	EventPreviewFailed   = "preview_failed"

	EventDocumentSaved   = "document_saved"
	EventDocumentDeleted = "document_deleted"
	EventAutosaveFailed  = "autosave_failed"
)
