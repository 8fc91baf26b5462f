package dto

// CreateCommentRequest payload for posting a workflow comment.
type CreateCommentRequest struct {
	ApplicationID string `json:"applicationId"`
	WorkflowID    string `json:"workflowId"`
	Comment       string `json:"comment"`
	IsInternal    bool   `json:"isInternal"`
}

// UpdateCommentRequest edits an existing comment.
type UpdateCommentRequest struct {
	Comment    *string `json:"comment"`
	IsInternal *bool   `json:"isInternal"`
}
