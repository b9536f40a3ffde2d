package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"festival-system/internal/apperror"
	"festival-system/internal/database"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var pageIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// PageService отдаёт информационные страницы и рендерит их markdown в HTML.
type PageService struct {
	db  *database.DB
	log *logger.Logger
	md  goldmark.Markdown
}

// NewPageService создаёт сервис страниц.
func NewPageService(db *database.DB, log *logger.Logger) *PageService {
	return &PageService{
		db:  db,
		log: log,
		md:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// ListPages возвращает страницы, доступные на данном уровне прав.
func (s *PageService) ListPages(ctx context.Context, isAuthenticated, isAdmin bool) ([]models.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_id, title, content, permission_level
		FROM page
		ORDER BY page_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.PageID, &p.Title, &p.Content, &p.PermissionLevel); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		if !pageVisible(p.PermissionLevel, isAuthenticated, isAdmin) {
			continue
		}
		if err := s.render(&p); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}

	return pages, nil
}

// GetPage возвращает одну страницу с учётом уровня доступа.
func (s *PageService) GetPage(ctx context.Context, pageID string, isAuthenticated, isAdmin bool) (*models.Page, error) {
	var p models.Page
	err := s.db.QueryRowContext(ctx, `
		SELECT page_id, title, content, permission_level
		FROM page
		WHERE page_id = $1
	`, pageID).Scan(&p.PageID, &p.Title, &p.Content, &p.PermissionLevel)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("page not found", err)
		}
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	if !pageVisible(p.PermissionLevel, isAuthenticated, isAdmin) {
		// Скрытая страница неотличима от отсутствующей.
		return nil, apperror.NotFound("page not found", nil)
	}

	if err := s.render(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPage создаёт или обновляет страницу. Только для администраторов.
func (s *PageService) UpsertPage(ctx context.Context, req *models.UpsertPageRequest) (*models.Page, error) {
	pageID := strings.TrimSpace(req.PageID)
	if !pageIDPattern.MatchString(pageID) {
		return nil, apperror.Validation("page id must be a lowercase slug", nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperror.Validation("page title is required", nil)
	}
	switch req.PermissionLevel {
	case models.PermissionPublic, models.PermissionMember, models.PermissionAdmin:
	default:
		return nil, apperror.Validation("unknown permission level", nil)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page (page_id, title, content, permission_level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (page_id) DO UPDATE
		SET title = EXCLUDED.title, content = EXCLUDED.content, permission_level = EXCLUDED.permission_level
	`, pageID, req.Title, req.Content, req.PermissionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert page: %w", err)
	}

	s.log.WithField("page_id", pageID).Info("Page saved")

	page := &models.Page{
		PageID:          pageID,
		Title:           req.Title,
		Content:         req.Content,
		PermissionLevel: req.PermissionLevel,
	}
	if err := s.render(page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *PageService) render(p *models.Page) error {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(p.Content), &buf); err != nil {
		return fmt.Errorf("failed to render page %s: %w", p.PageID, err)
	}
	p.ContentHTML = buf.String()
	return nil
}

func pageVisible(level string, isAuthenticated, isAdmin bool) bool {
	switch level {
	case models.PermissionPublic:
		return true
	case models.PermissionMember:
		return isAuthenticated
	case models.PermissionAdmin:
		return isAdmin
	default:
		return false
	}
}
