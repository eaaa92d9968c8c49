package api

import "context"

// DocumentList is the payload of a successful list call.
type DocumentList struct {
	Documents  []Document
	Statistics *Statistics // nil when the backend omits it
}

// Service is the remote document/answer service as seen by the client.
// Implementations perform no caching: every call goes to the network.
type Service interface {
	ListDocuments(ctx context.Context) (DocumentList, error)
	UploadDocument(ctx context.Context, upload Upload) (*UploadAck, error)
	DeleteDocument(ctx context.Context, id DocumentID) error
	FetchChatHistory(ctx context.Context, id DocumentID) ([]ChatEntry, error)
	AskQuestion(ctx context.Context, req AskRequest) (*Answer, error)
}
