package fstools

import "context"

// RAGCollaborator is the external retrieval collaborator query_rag
// forwards to (§4.L). The core carries no RAG index of its own — spec.md
// §1 places it out of scope — so this is just a pass-through seam.
type RAGCollaborator interface {
	Query(ctx context.Context, query string) (string, error)
}

// QueryRAG forwards query to collaborator and returns its string
// result unchanged, folding a transport error into the same
// short-string failure convention as the other L tools.
func QueryRAG(ctx context.Context, collaborator RAGCollaborator, query string) (string, error) {
	if collaborator == nil {
		return "", nil
	}
	result, err := collaborator.Query(ctx, query)
	if err != nil {
		return "", err
	}
	return result, nil
}
