package models

// Page представляет информационную страницу с markdown-контентом.
type Page struct {
	PageID          string `json:"page_id" db:"page_id"`
	Title           string `json:"title" db:"title"`
	Content         string `json:"content" db:"content"` // markdown
	ContentHTML     string `json:"content_html,omitempty"`
	PermissionLevel string `json:"permission_level" db:"permission_level"`
}

// Уровни доступа к страницам.
const (
	PermissionPublic = "public"
	PermissionMember = "member"
	PermissionAdmin  = "admin"
)

// UpsertPageRequest описывает создание или обновление страницы.
type UpsertPageRequest struct {
	PageID          string `json:"page_id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	PermissionLevel string `json:"permission_level"`
}
