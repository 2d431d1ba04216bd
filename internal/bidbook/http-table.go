// HTTP-сервисы таблиц торговых систем: CRUD таблиц, ячеек и вложений.
package bidbook

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bidbook/bidbook.go/internal/bidbook/apierrors"
	"github.com/bidbook/bidbook.go/internal/bidbook/dao"
)

// Предел размера сырой разметки одной ячейки.
const maxCellMarkupBytes = 256 * 1024

type TableContext struct {
	echo.Context
	Table dao.BidTable
}

type CellContext struct {
	TableContext
	Cell dao.TableCell
}

func (s *Services) TableMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		table, err := dao.GetBidTableBySlug(s.db, c.Param("tableSlug"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrTableNotFound)
			}
			return EError(c, err)
		}
		return next(TableContext{c, table})
	}
}

func (s *Services) CellMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.(TableContext)
		cellId, err := uuid.FromString(c.Param("cellId"))
		if err != nil {
			return EErrorDefined(c, apierrors.ErrInvalidUUID)
		}
		cell, err := dao.GetTableCell(s.db, ctx.Table.ID, cellId)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrCellNotFound)
			}
			return EError(c, err)
		}
		return next(CellContext{ctx, cell})
	}
}

func (s *Services) AddTableServices(g *echo.Group) {
	g.GET("tables/", s.getTableList)
	g.POST("tables/", s.createTable)

	tableGroup := g.Group("tables/:tableSlug", s.TableMiddleware)
	tableGroup.GET("/", s.getTable)
	tableGroup.DELETE("/", s.deleteTable)

	tableGroup.GET("/cells/", s.getCellList)
	tableGroup.POST("/cells/", s.createCell)
	tableGroup.GET("/cells/search/", s.searchCells)

	cellGroup := tableGroup.Group("/cells/:cellId", s.CellMiddleware)
	cellGroup.GET("/", s.getCell)
	cellGroup.PATCH("/", s.updateCell)
	cellGroup.DELETE("/", s.deleteCell)

	cellGroup.POST("/attachments/", s.createCellAttachment)
	cellGroup.DELETE("/attachments/:attachmentId/", s.deleteCellAttachment)
}

func (s *Services) getTableList(c echo.Context) error {
	var tables []dao.BidTable
	if err := s.db.Order("name").Find(&tables).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, tables)
}

type tableCreateRequest struct {
	Name string `json:"name" validate:"required,tableName"`
	Slug string `json:"slug" validate:"required,slug"`
	Rows int    `json:"rows" validate:"omitempty,min=1,max=64"`
	Cols int    `json:"cols" validate:"omitempty,min=1,max=64"`
}

func (s *Services) createTable(c echo.Context) error {
	var req tableCreateRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrValidation.WithFormattedMessage(err.Error()))
	}

	table := dao.BidTable{
		ID:   dao.GenUUID(),
		Name: req.Name,
		Slug: req.Slug,
		Rows: req.Rows,
		Cols: req.Cols,
	}
	if table.Rows == 0 {
		table.Rows = 16
	}
	if table.Cols == 0 {
		table.Cols = 16
	}

	if err := s.db.Create(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return EErrorDefined(c, apierrors.ErrTableSlugConflict)
		}
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, table)
}

func (s *Services) getTable(c echo.Context) error {
	table := c.(TableContext).Table
	cells, err := dao.GetTableCells(s.db, table.ID)
	if err != nil {
		return EError(c, err)
	}
	table.Cells = cells
	return c.JSON(http.StatusOK, table)
}

func (s *Services) deleteTable(c echo.Context) error {
	table := c.(TableContext).Table

	cells, err := dao.GetTableCells(s.db, table.ID)
	if err != nil {
		return EError(c, err)
	}
	if err := s.db.Delete(&table).Error; err != nil {
		return EError(c, err)
	}
	for _, cell := range cells {
		s.deleteCellBlobs(cell.ID)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Services) getCellList(c echo.Context) error {
	table := c.(TableContext).Table
	cells, err := dao.GetTableCells(s.db, table.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, cells)
}

type cellCreateRequest struct {
	Row     int    `json:"row" validate:"min=0"`
	Col     int    `json:"col" validate:"min=0"`
	Content string `json:"content"`
}

func (s *Services) createCell(c echo.Context) error {
	table := c.(TableContext).Table

	var req cellCreateRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrValidation.WithFormattedMessage(err.Error()))
	}
	if req.Row >= table.Rows || req.Col >= table.Cols {
		return EErrorDefined(c, apierrors.ErrCellOutsideGrid)
	}
	if len(req.Content) > maxCellMarkupBytes {
		return EErrorDefined(c, apierrors.ErrMarkupTooLarge)
	}

	cell := dao.TableCell{
		ID:      dao.GenUUID(),
		TableId: table.ID,
		Row:     req.Row,
		Col:     req.Col,
		Content: req.Content,
	}
	if err := s.db.Create(&cell).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return EErrorDefined(c, apierrors.ErrCellConflict)
		}
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, cell)
}

func (s *Services) getCell(c echo.Context) error {
	return c.JSON(http.StatusOK, c.(CellContext).Cell)
}

type cellUpdateRequest struct {
	Content *string `json:"content"`
}

func (s *Services) updateCell(c echo.Context) error {
	cell := c.(CellContext).Cell

	var req cellUpdateRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrBadRequest)
	}
	if req.Content == nil {
		return c.JSON(http.StatusOK, cell)
	}
	if len(*req.Content) > maxCellMarkupBytes {
		return EErrorDefined(c, apierrors.ErrMarkupTooLarge)
	}

	// Сырая разметка канонизируется хуком BeforeSave.
	cell.Content = *req.Content
	if err := s.db.Save(&cell).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, cell)
}

func (s *Services) deleteCell(c echo.Context) error {
	cell := c.(CellContext).Cell
	if err := s.db.Delete(&cell).Error; err != nil {
		return EError(c, err)
	}
	s.deleteCellBlobs(cell.ID)
	return c.NoContent(http.StatusOK)
}

// deleteCellBlobs чистит блобы вложений удаленной ячейки. Ошибки хранилища
// не валят запрос: записи в базе уже удалены, осиротевшие блобы переживут
// до следующей чистки.
func (s *Services) deleteCellBlobs(cellId uuid.UUID) {
	records, err := s.storage.GetByOwner(cellId)
	if err != nil {
		EErrorSilent("list cell blobs", err)
		return
	}
	for _, r := range records {
		if err := s.storage.Delete(r.ID); err != nil {
			EErrorSilent("delete cell blob", err)
		}
	}
}

func (s *Services) searchCells(c echo.Context) error {
	table := c.(TableContext).Table
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusOK, []dao.TableCell{})
	}
	cells, err := dao.SearchCells(s.db, table.ID, query)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, cells)
}

type attachmentResponse struct {
	Asset dao.FileAsset `json:"asset"`
	Src   string        `json:"src"`
}

func (s *Services) createCellAttachment(c echo.Context) error {
	cell := c.(CellContext).Cell

	asset, err := c.FormFile("asset")
	if err != nil {
		return EError(c, err)
	}
	if asset.Size > apierrors.AttachmentMaxSizeMB*1024*1024 {
		return EErrorDefined(c, apierrors.ErrAttachmentTooLarge)
	}
	contentType := asset.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return EErrorDefined(c, apierrors.ErrAttachmentContentType)
	}

	assetSrc, err := asset.Open()
	if err != nil {
		return EError(c, err)
	}
	defer assetSrc.Close()

	data, err := io.ReadAll(assetSrc)
	if err != nil {
		return EError(c, err)
	}

	fileName := asset.Filename
	if decodedFilename, err := url.QueryUnescape(asset.Filename); err == nil {
		fileName = decodedFilename
	}

	blobId, err := s.storage.Create(data, contentType, cell.ID)
	if err != nil {
		return EErrorDefined(c, apierrors.ErrAttachmentUploadFailed)
	}

	fa := dao.FileAsset{
		Id:          blobId,
		CreatedAt:   time.Now(),
		CellId:      uuid.NullUUID{UUID: cell.ID, Valid: true},
		Name:        fileName,
		ContentType: contentType,
		FileSize:    int(asset.Size),
	}
	if err := s.db.Create(&fa).Error; err != nil {
		s.storage.Delete(blobId)
		return EError(c, err)
	}

	return c.JSON(http.StatusCreated, attachmentResponse{
		Asset: fa,
		Src:   "/api/file/" + blobId.String() + "/",
	})
}

func (s *Services) deleteCellAttachment(c echo.Context) error {
	cell := c.(CellContext).Cell

	attachmentId, err := uuid.FromString(c.Param("attachmentId"))
	if err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidUUID)
	}

	var fa dao.FileAsset
	if err := s.db.
		Where("id = ? and cell_id = ?", attachmentId, cell.ID).
		First(&fa).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrAttachmentNotFound)
		}
		return EError(c, err)
	}

	if err := s.db.Delete(&fa).Error; err != nil {
		return EError(c, err)
	}
	if err := s.storage.Delete(fa.Id); err != nil {
		EErrorSilent("delete attachment blob", err)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Services) getBlobFile(c echo.Context) error {
	fileId, err := uuid.FromString(strings.TrimSuffix(c.Param("fileName"), "/"))
	if err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidUUID)
	}

	var fa dao.FileAsset
	if err := s.db.Where("id = ?", fileId).First(&fa).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrAttachmentNotFound)
		}
		return EError(c, err)
	}

	reader, err := s.storage.LoadReader(fileId)
	if err != nil {
		return EError(c, err)
	}
	defer reader.Close()

	return c.Stream(http.StatusOK, fa.ContentType, reader)
}
