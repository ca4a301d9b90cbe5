package controllers

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"syncgate/internal/engine"
	"syncgate/internal/models"
	"syncgate/pkg/config"
	"syncgate/pkg/version"
)

// NoteDTO 笔记传输对象
type NoteDTO struct {
	engine.BaseDTO
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Extra   datatypes.JSON `json:"extra,omitempty"`
}

// NoteAdapter 笔记实体转换器
type NoteAdapter struct{}

func (NoteAdapter) TableName() string       { return "notes" }
func (NoteAdapter) NewEntity() *models.Note { return &models.Note{} }
func (NoteAdapter) NewDTO() *NoteDTO        { return &NoteDTO{} }

func (NoteAdapter) ToDTO(n *models.Note) *NoteDTO {
	return &NoteDTO{
		BaseDTO: engine.BaseDTO{
			ID:             n.ID,
			TenantID:       n.TenantID,
			CreateTime:     n.CreateTime,
			LastUpdateTime: n.LastUpdateTime,
		},
		Subject: n.Subject,
		Body:    n.Body,
		Extra:   n.Extra,
	}
}

func (NoteAdapter) ToEntity(d *NoteDTO) *models.Note {
	n := &models.Note{
		Subject: d.Subject,
		Body:    d.Body,
		Extra:   d.Extra,
	}
	n.ID = d.ID
	n.TenantID = d.TenantID
	n.CreateTime = d.CreateTime
	n.LastUpdateTime = d.LastUpdateTime
	return n
}

func (NoteAdapter) Columns() map[string]string {
	return map[string]string{
		"Subject": "subject",
		"Body":    "body",
	}
}

// NewNoteController 组装笔记表的同步引擎和控制器
func NewNoteController(db *gorm.DB, counter version.Counter, cfg *config.Config, notifier engine.Notifier) *EntityController[*models.Note, *NoteDTO] {
	eng := engine.New[*models.Note, *NoteDTO](db, NoteAdapter{}, counter, engineOptions(cfg, "notes", true)).
		WithNotifier(notifier)
	return NewEntityController(eng)
}
