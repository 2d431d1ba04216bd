// Модели таблиц торговых систем и запросы к ним.
package dao

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// BidTable - таблица торговой системы: именованная сетка ячеек с разметкой.
type BidTable struct {
	ID uuid.UUID `gorm:"column:id;primaryKey;type:uuid" json:"id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `json:"name" validate:"required,max=150"`
	Slug string `json:"slug" gorm:"uniqueIndex" validate:"required,max=48"`

	Rows int `json:"rows" gorm:"default:16" validate:"min=1,max=64"`
	Cols int `json:"cols" gorm:"default:16" validate:"min=1,max=64"`

	Cells []TableCell `json:"cells,omitempty" gorm:"foreignKey:TableId"`
}

// TableCell - ячейка таблицы. Content хранит каноническую разметку движка,
// ContentText - плоский текст для полнотекстового поиска.
type TableCell struct {
	ID uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TableId uuid.UUID `json:"table" gorm:"type:uuid;index;uniqueIndex:cell_pos_uniq"`
	Table   *BidTable `json:"-" gorm:"foreignKey:TableId"`

	// row - зарезервированное слово в Postgres, колонки переименованы.
	Row int `json:"row" gorm:"column:grid_row;uniqueIndex:cell_pos_uniq" validate:"min=0"`
	Col int `json:"col" gorm:"column:grid_col;uniqueIndex:cell_pos_uniq" validate:"min=0"`

	Content     string `json:"content"`
	ContentText string `json:"content_text"`

	Attachments []FileAsset `json:"cell_attachments,omitempty" gorm:"foreignKey:CellId"`
}

// FileAsset - файловое вложение ячейки. Id совпадает с ключом блоба в хранилище.
type FileAsset struct {
	Id          uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt   time.Time     `json:"created_at"`
	CellId      uuid.NullUUID `json:"cell" gorm:"type:uuid;index"`
	Name        string        `json:"name" gorm:"index"`
	FileSize    int           `json:"size"`
	ContentType string        `json:"content_type"`
}

// BeforeSave канонизирует разметку ячейки: любое содержимое проходит через
// санитайзер и нормализатор движка и сохраняется в каноническом виде.
func (cell *TableCell) BeforeSave(tx *gorm.DB) error {
	cell.Content, cell.ContentText = CanonicalizeContent(cell.Content)
	return nil
}

// BeforeDelete удаляет записи вложений ячейки. Сами блобы чистит хостовый слой.
func (cell *TableCell) BeforeDelete(tx *gorm.DB) error {
	return tx.Where("cell_id = ?", cell.ID).Delete(&FileAsset{}).Error
}

// BeforeDelete удаляет ячейки таблицы вместе с их вложениями.
func (table *BidTable) BeforeDelete(tx *gorm.DB) error {
	var cells []TableCell
	if err := tx.Where("table_id = ?", table.ID).Find(&cells).Error; err != nil {
		return err
	}
	for _, cell := range cells {
		if err := tx.Delete(&cell).Error; err != nil {
			return err
		}
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&BidTable{},
		&TableCell{},
		&FileAsset{},
	)
}

func GetBidTableBySlug(db *gorm.DB, slug string) (BidTable, error) {
	var table BidTable
	err := db.Where("slug = ?", slug).First(&table).Error
	return table, err
}

func GetTableCells(db *gorm.DB, tableId uuid.UUID) ([]TableCell, error) {
	var cells []TableCell
	err := db.
		Where("table_id = ?", tableId).
		Order("grid_row, grid_col").
		Preload("Attachments").
		Find(&cells).Error
	return cells, err
}

func GetTableCell(db *gorm.DB, tableId uuid.UUID, cellId uuid.UUID) (TableCell, error) {
	var cell TableCell
	err := db.
		Where("table_id = ? and id = ?", tableId, cellId).
		Preload("Attachments").
		First(&cell).Error
	return cell, err
}

func GetCellAtPosition(db *gorm.DB, tableId uuid.UUID, row int, col int) (TableCell, error) {
	var cell TableCell
	err := db.
		Where("table_id = ? and grid_row = ? and grid_col = ?", tableId, row, col).
		First(&cell).Error
	return cell, err
}

// SearchCells ищет ячейки таблицы по плоскому тексту содержимого.
func SearchCells(db *gorm.DB, tableId uuid.UUID, query string) ([]TableCell, error) {
	var cells []TableCell
	err := db.
		Where("table_id = ? and content_text like ?", tableId, "%"+query+"%").
		Order("grid_row, grid_col").
		Find(&cells).Error
	return cells, err
}
