package model

type Note struct {
	UUIDBase
	NotebookID string `gorm:"index;type:varchar(36);not null" json:"notebookId"`
	OwnerID    uint   `gorm:"index;not null" json:"ownerId"`
	Title      string `gorm:"size:255" json:"title"`
	Content    string `gorm:"type:text" json:"content"`
}

func (Note) TableName() string {
	return "notes"
}
