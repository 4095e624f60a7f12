package domain

const (
	MailDeclarationReviewed = "declaration_reviewed"
	MailSyncReport          = "sync_report"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type DeclarationReviewedMailData struct {
	FullName      string `json:"fullName"`
	Period        string `json:"period"`
	TotalHours    string `json:"totalHours"`
	DeclarationID int64  `json:"declarationID"`
}

type SyncReportMailData struct {
	FullName      string   `json:"fullName"`
	DeclarationID int64    `json:"declarationID"`
	Period        string   `json:"period"`
	Result        string   `json:"result"`
	Summary       string   `json:"summary"`
	Errors        []string `json:"errors"`
}
