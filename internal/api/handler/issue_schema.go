package handler

// errorResponse is the standard error envelope returned on 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// validationErrorResponse is returned when input fails field validation.
type validationErrorResponse struct {
	Errors map[string][]string `json:"errors"`
}

// --- Request / Response types ---

type createIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// updateIssueRequest is a partial update. Omitted and "" are equivalent.
type updateIssueRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty" enums:"OPEN,IN_PROGRESS,CLOSED"`
}

type issueResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"descriptionHtml"`
	Status          string `json:"status" enums:"OPEN,IN_PROGRESS,CLOSED"`
	UserID          int64  `json:"userId"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

type deleteIssueResponse struct {
	Success bool `json:"success"`
}
