package model

type NotebookStatus string

const (
	NotebookPending    NotebookStatus = "pending"
	NotebookGenerating NotebookStatus = "generating"
	NotebookCompleted  NotebookStatus = "completed"
	NotebookFailed     NotebookStatus = "failed"
)

// Notebook is a per-week container of learning resources and AI chat history.
// The chat session id of a notebook equals its own id.
type Notebook struct {
	UUIDBase
	OwnerID     uint           `gorm:"index;not null" json:"ownerId"`
	Week        int            `gorm:"index" json:"week"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Icon        string         `gorm:"size:50" json:"icon"`
	Status      NotebookStatus `gorm:"size:20;default:'pending'" json:"status"`
	Sources     []Source       `gorm:"foreignKey:NotebookID" json:"sources,omitempty"`
}

func (Notebook) TableName() string {
	return "notebooks"
}
