package controllers

import (
	"gorm.io/gorm"

	"syncgate/internal/engine"
	"syncgate/internal/models"
	"syncgate/pkg/config"
	"syncgate/pkg/version"
)

// NoteItemDTO 笔记条目传输对象
type NoteItemDTO struct {
	engine.BaseDTO
	NoteID  uint   `json:"note_id"`
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// NoteItemAdapter 笔记条目实体转换器
type NoteItemAdapter struct{}

func (NoteItemAdapter) TableName() string           { return "note_items" }
func (NoteItemAdapter) NewEntity() *models.NoteItem { return &models.NoteItem{} }
func (NoteItemAdapter) NewDTO() *NoteItemDTO        { return &NoteItemDTO{} }

func (NoteItemAdapter) ToDTO(n *models.NoteItem) *NoteItemDTO {
	return &NoteItemDTO{
		BaseDTO: engine.BaseDTO{
			ID:             n.ID,
			TenantID:       n.TenantID,
			CreateTime:     n.CreateTime,
			LastUpdateTime: n.LastUpdateTime,
		},
		NoteID:  n.NoteID,
		Content: n.Content,
		Done:    n.Done,
	}
}

func (NoteItemAdapter) ToEntity(d *NoteItemDTO) *models.NoteItem {
	n := &models.NoteItem{
		NoteID:  d.NoteID,
		Content: d.Content,
		Done:    d.Done,
	}
	n.ID = d.ID
	n.TenantID = d.TenantID
	n.CreateTime = d.CreateTime
	n.LastUpdateTime = d.LastUpdateTime
	return n
}

func (NoteItemAdapter) Columns() map[string]string {
	return map[string]string{
		"NoteID":  "note_id",
		"Content": "content",
		"Done":    "done",
	}
}

// NewNoteItemController 组装笔记条目表的同步引擎和控制器
func NewNoteItemController(db *gorm.DB, counter version.Counter, cfg *config.Config, notifier engine.Notifier) *EntityController[*models.NoteItem, *NoteItemDTO] {
	eng := engine.New[*models.NoteItem, *NoteItemDTO](db, NoteItemAdapter{}, counter, engineOptions(cfg, "note_items", true)).
		WithNotifier(notifier)
	return NewEntityController(eng)
}
